package shader

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
)

//go:embed glsl/*.glsl
var embedded embed.FS

// DefinesMarker is the line in the common header replaced by #define lines.
const DefinesMarker = "// @defines"

const (
	headerFile       = "common_header.glsl"
	commonVertexFile = "common_vertex.glsl"
)

// HeaderFile is the source prepended to every family. Reloading it
// rebuilds them all.
const HeaderFile = headerFile

// Default family names.
const (
	Unlit         = "unlit"
	UnlitTextured = "unlit_textured"
	Phong         = "phong"
	PhongTextured = "phong_textured"
)

// Family uniform names shared by the GLSL sources and the materials.
const (
	UniformDiffuseColor     = "diffuseColor"
	UniformSpecularStrength = "specularStrength"
	UniformShininess        = "shininess"
	UniformDiffuseSampler   = "diffuseSampler"
	UniformSpecularSampler  = "specularSampler"
	UniformEmissionSampler  = "emissionSampler"
)

// TexCoordDefine marks the textured families, which pass texture
// coordinates through even without a bound map.
const TexCoordDefine = "TEXTURE_COORDS"

type family struct {
	vertex   string
	fragment string
	defines  []string
	uniforms []string
}

var (
	unlitUniforms = []string{UniformDiffuseColor, UniformDiffuseSampler}
	phongUniforms = []string{
		UniformDiffuseColor, UniformSpecularStrength, UniformShininess,
		UniformDiffuseSampler, UniformSpecularSampler, UniformEmissionSampler,
	}

	families = map[string]family{
		Unlit:         {"unlit.vert.glsl", "unlit.frag.glsl", nil, unlitUniforms},
		UnlitTextured: {"unlit.vert.glsl", "unlit.frag.glsl", []string{TexCoordDefine}, unlitUniforms},
		Phong:         {"phong.vert.glsl", "phong.frag.glsl", nil, phongUniforms},
		PhongTextured: {"phong.vert.glsl", "phong.frag.glsl", []string{TexCoordDefine}, phongUniforms},
	}
)

// Families returns the default family names in sorted order.
func Families() []string {
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Library serves GLSL sources. Files in the override directory shadow the
// embedded ones, which lets shaders be edited without rebuilding.
type Library struct {
	dir          string
	override     fs.FS
	base         fs.FS
	header       string
	commonVertex string
}

// NewLibrary loads the common sources. dir may be empty.
func NewLibrary(dir string) (*Library, error) {
	base, err := fs.Sub(embedded, "glsl")
	if err != nil {
		return nil, fmt.Errorf("opening embedded shaders: %w", err)
	}

	l := &Library{dir: dir, base: base}
	if dir != "" {
		l.override = os.DirFS(dir)
	}

	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Dir returns the override directory.
func (l *Library) Dir() string { return l.dir }

// Reload re-reads the common header and vertex code.
func (l *Library) Reload() error {
	header, err := l.Source(headerFile)
	if err != nil {
		return err
	}
	if !strings.Contains(header, DefinesMarker) {
		return fmt.Errorf("%s: missing %q marker", headerFile, DefinesMarker)
	}
	common, err := l.Source(commonVertexFile)
	if err != nil {
		return err
	}
	l.header, l.commonVertex = header, common
	return nil
}

// Header returns the common header, defines marker included.
func (l *Library) Header() string { return l.header }

// CommonVertex returns the vertex code shared by every family.
func (l *Library) CommonVertex() string { return l.commonVertex }

// Source reads a GLSL file by name.
func (l *Library) Source(name string) (string, error) {
	if l.override != nil {
		data, err := fs.ReadFile(l.override, name)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("reading shader %s: %w", name, err)
		}
	}
	data, err := fs.ReadFile(l.base, name)
	if err != nil {
		return "", fmt.Errorf("reading shader %s: %w", name, err)
	}
	return string(data), nil
}

// Family builds one of the default families.
func (l *Library) Family(name string) (*Shader, error) {
	f, ok := families[name]
	if !ok {
		return nil, fmt.Errorf("unknown shader family %q", name)
	}
	s := &Shader{Name: name}
	if err := l.load(s, f); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh re-reads the sources of a default family into s. Shaders that
// are not default families are left untouched.
func (l *Library) Refresh(s *Shader) (bool, error) {
	f, ok := families[s.Name]
	if !ok {
		return false, nil
	}
	if err := l.load(s, f); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Library) load(s *Shader, f family) error {
	vert, err := l.Source(f.vertex)
	if err != nil {
		return err
	}
	frag, err := l.Source(f.fragment)
	if err != nil {
		return err
	}
	s.VertexSource = vert
	s.FragmentSource = frag
	s.Defines = append([]string(nil), f.defines...)
	s.Uniforms = append([]string(nil), f.uniforms...)
	return nil
}

// Uses reports whether the family s is built from the file name.
func Uses(s *Shader, name string) bool {
	if name == headerFile || name == commonVertexFile {
		return true
	}
	f, ok := families[s.Name]
	return ok && (f.vertex == name || f.fragment == name)
}
