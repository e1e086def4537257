package material

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/jinzhu/copier"

	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/engine/shader"
	"github.com/Faultbox/forge3d/internal/engine/texture"
)

// Phong is a Blinn-Phong material with optional diffuse, specular and
// emission maps.
type Phong struct {
	base

	DiffuseColor     mgl32.Vec4
	SpecularStrength float32
	Shininess        float32

	// Maps are owned by the texture registry and shared between clones.
	DiffuseMap  *texture.Texture `copier:"-"`
	SpecularMap *texture.Texture `copier:"-"`
	EmissionMap *texture.Texture `copier:"-"`
}

var _ Material = (*Phong)(nil)

// NewPhong returns a white Phong material.
func NewPhong(s *shader.Shader) *Phong {
	return &Phong{
		base:             base{shader: s},
		DiffuseColor:     mgl32.Vec4{1, 1, 1, 1},
		SpecularStrength: 0.5,
		Shininess:        32,
	}
}

func (m *Phong) FeatureMask() uint32 {
	var mask uint32
	if m.DiffuseMap != nil {
		mask |= DiffuseMap
	}
	if m.SpecularMap != nil {
		mask |= SpecularMap
	}
	if m.EmissionMap != nil {
		mask |= EmissionMap
	}
	return mask
}

func (m *Phong) Defines() []string {
	var defines []string
	if m.DiffuseMap != nil {
		defines = append(defines, "PHONG_DIFFUSE_MAP")
	}
	if m.SpecularMap != nil {
		defines = append(defines, "PHONG_SPECULAR_MAP")
	}
	if m.EmissionMap != nil {
		defines = append(defines, "PHONG_EMISSION_MAP")
	}
	return defines
}

func (m *Phong) PushUniforms(ctx gfx.Context, p *shader.Program) {
	setColor(ctx, p, shader.UniformDiffuseColor, m.DiffuseColor)
	setFloat(ctx, p, shader.UniformSpecularStrength, m.SpecularStrength)
	setFloat(ctx, p, shader.UniformShininess, m.Shininess)

	units := textureUnits{ctx: ctx, p: p}
	units.bind(shader.UniformDiffuseSampler, m.DiffuseMap)
	units.bind(shader.UniformSpecularSampler, m.SpecularMap)
	units.bind(shader.UniformEmissionSampler, m.EmissionMap)
}

// Clone copies the parameters. Textures, shader and program are shared.
func (m *Phong) Clone() Material {
	out := &Phong{base: m.base}
	if err := copier.Copy(out, m); err != nil {
		*out = *m
	}
	out.DiffuseMap = m.DiffuseMap
	out.SpecularMap = m.SpecularMap
	out.EmissionMap = m.EmissionMap
	return out
}
