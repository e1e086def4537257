package material

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/jinzhu/copier"

	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/engine/shader"
	"github.com/Faultbox/forge3d/internal/engine/texture"
)

// Unlit shades with a flat color, optionally modulated by a diffuse map.
type Unlit struct {
	base

	DiffuseColor mgl32.Vec4
	DiffuseMap   *texture.Texture `copier:"-"`
}

var _ Material = (*Unlit)(nil)

// NewUnlit returns a white unlit material.
func NewUnlit(s *shader.Shader) *Unlit {
	return &Unlit{
		base:         base{shader: s},
		DiffuseColor: mgl32.Vec4{1, 1, 1, 1},
	}
}

func (m *Unlit) FeatureMask() uint32 {
	if m.DiffuseMap != nil {
		return DiffuseMap
	}
	return 0
}

func (m *Unlit) Defines() []string {
	if m.DiffuseMap != nil {
		return []string{"UNLIT_DIFFUSE_MAP"}
	}
	return nil
}

func (m *Unlit) PushUniforms(ctx gfx.Context, p *shader.Program) {
	setColor(ctx, p, shader.UniformDiffuseColor, m.DiffuseColor)

	units := textureUnits{ctx: ctx, p: p}
	units.bind(shader.UniformDiffuseSampler, m.DiffuseMap)
}

// Clone copies the parameters. Textures, shader and program are shared.
func (m *Unlit) Clone() Material {
	out := &Unlit{base: m.base}
	if err := copier.Copy(out, m); err != nil {
		*out = *m
	}
	out.DiffuseMap = m.DiffuseMap
	return out
}
