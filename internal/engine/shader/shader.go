// Package shader compiles and caches GPU program variants.
//
// A Shader is a family of programs sharing GLSL source. Each distinct
// combination of vertex attributes and material features present at draw
// time compiles to its own Program; the Cache keys them by
//
//	hash = attributeMask | featureMask<<16
//
// so instances that share a combination share one Program.
package shader

import (
	"errors"
	"fmt"

	"github.com/Faultbox/forge3d/internal/engine/gfx"
)

// Names of the uniform blocks every program must declare.
const (
	GlobalBlockName = "GlobalBlock"
	ObjectBlockName = "ObjectBlock"
)

// Fixed binding slots of the two uniform blocks.
const (
	GlobalBlockBinding uint32 = 0
	ObjectBlockBinding uint32 = 1
)

// ErrMissingUniformBlock is returned when a linked program does not expose
// GlobalBlock or ObjectBlock.
var ErrMissingUniformBlock = errors.New("missing uniform block")

// Shader describes a shading family.
type Shader struct {
	Name           string
	VertexSource   string
	FragmentSource string

	// Defines are emitted for every variant of the family.
	Defines []string

	// Uniforms are family-specific uniform names resolved per variant.
	Uniforms []string
}

// Program is one compiled variant of a Shader.
type Program struct {
	Handle      gfx.Program
	Hash        uint32
	GlobalBlock uint32
	ObjectBlock uint32

	locations map[string]gfx.Uniform
}

// Location returns the location of a family uniform, or gfx.NoUniform when
// the variant does not use it.
func (p *Program) Location(name string) gfx.Uniform {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	return gfx.NoUniform
}

// Hash combines an attribute mask and a feature mask into a program key.
func Hash(attributes gfx.AttributeMask, features uint32) uint32 {
	return uint32(attributes) | features<<16
}

// CompileError reports a failed compile or link. Stage is "vertex",
// "fragment" or "link".
type CompileError struct {
	Shader string
	Stage  string
	Log    string
}

func (e *CompileError) Error() string {
	if e.Stage == "link" {
		return fmt.Sprintf("shader %s: link failed: %s", e.Shader, e.Log)
	}
	return fmt.Sprintf("shader %s: %s compile failed: %s", e.Shader, e.Stage, e.Log)
}
