// Package material defines the shading parameters bound to mesh primitives.
//
// Materials form a closed set of variants behind the Material interface.
// Each variant knows its feature mask, the defines those features enable and
// how to push its uniforms, so the renderer never inspects concrete types.
package material

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/engine/shader"
	"github.com/Faultbox/forge3d/internal/engine/texture"
)

// Feature bits. A material's feature mask is the set of optional maps bound.
const (
	DiffuseMap  uint32 = 1
	SpecularMap uint32 = 2
	EmissionMap uint32 = 4
)

// Material is a shading parameter set bound to a shader family and, once
// resolved, to a compiled program variant.
type Material interface {
	Shader() *shader.Shader
	Program() *shader.Program
	SetProgram(p *shader.Program)
	FeatureMask() uint32
	Defines() []string
	PushUniforms(ctx gfx.Context, p *shader.Program)
	Clone() Material
}

// base carries the shader and program references shared by all variants.
type base struct {
	shader  *shader.Shader
	program *shader.Program
}

func (b *base) Shader() *shader.Shader       { return b.shader }
func (b *base) Program() *shader.Program     { return b.program }
func (b *base) SetProgram(p *shader.Program) { b.program = p }

// SetShader switches the family. The program is dropped and must be
// resolved again.
func (b *base) SetShader(s *shader.Shader) {
	b.shader = s
	b.program = nil
}

func setColor(ctx gfx.Context, p *shader.Program, name string, c mgl32.Vec4) {
	if loc := p.Location(name); loc != gfx.NoUniform {
		ctx.Uniform4f(loc, [4]float32(c))
	}
}

func setFloat(ctx gfx.Context, p *shader.Program, name string, v float32) {
	if loc := p.Location(name); loc != gfx.NoUniform {
		ctx.Uniform1f(loc, v)
	}
}

// textureUnits hands out sequential texture units starting at 0.
type textureUnits struct {
	ctx  gfx.Context
	p    *shader.Program
	next int
}

func (u *textureUnits) bind(name string, t *texture.Texture) {
	if t == nil {
		return
	}
	unit := u.next
	u.next++
	u.ctx.ActiveTexture(unit)
	u.ctx.BindTexture(t.Handle)
	if loc := u.p.Location(name); loc != gfx.NoUniform {
		u.ctx.Uniform1i(loc, int32(unit))
	}
}
