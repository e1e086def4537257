package shader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedFamilies(t *testing.T) {
	lib, err := NewLibrary("")
	require.NoError(t, err)

	assert.Equal(t, []string{Phong, PhongTextured, Unlit, UnlitTextured}, Families())
	assert.Contains(t, lib.Header(), GlobalBlockName)
	assert.Contains(t, lib.Header(), ObjectBlockName)
	assert.Contains(t, lib.CommonVertex(), "a_position")

	for _, name := range Families() {
		s, err := lib.Family(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name)
		assert.NotEmpty(t, s.VertexSource)
		assert.NotEmpty(t, s.FragmentSource)
		assert.Contains(t, s.Uniforms, UniformDiffuseColor)
	}

	textured, err := lib.Family(PhongTextured)
	require.NoError(t, err)
	assert.Equal(t, []string{TexCoordDefine}, textured.Defines)

	_, err = lib.Family("toon")
	assert.Error(t, err)
}

func TestOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	custom := "\nvoid main() { gl_Position = vec4(0.0); }\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unlit.vert.glsl"), []byte(custom), 0o644))

	lib, err := NewLibrary(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, lib.Dir())

	s, err := lib.Family(Unlit)
	require.NoError(t, err)
	assert.Equal(t, custom, s.VertexSource)

	// Files missing from the directory fall back to the embedded copy.
	embedded, err := NewLibrary("")
	require.NoError(t, err)
	assert.Equal(t, embedded.Header(), lib.Header())

	updated := "\nvoid main() { gl_Position = vec4(1.0); }\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unlit.vert.glsl"), []byte(updated), 0o644))
	ok, err := lib.Refresh(s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, updated, s.VertexSource)

	ok, err = lib.Refresh(&Shader{Name: "custom"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHeaderWithoutMarker(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, headerFile), []byte("#version 410 core\n"), 0o644))

	_, err := NewLibrary(dir)
	assert.Error(t, err)
}

func TestUses(t *testing.T) {
	phong := &Shader{Name: Phong}
	assert.True(t, Uses(phong, "phong.frag.glsl"))
	assert.True(t, Uses(phong, headerFile))
	assert.False(t, Uses(phong, "unlit.frag.glsl"))
	assert.False(t, Uses(&Shader{Name: "custom"}, "phong.frag.glsl"))
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "phong.frag.glsl"), []byte("void main() {}"), 0o644))

	var got []string
	assert.Eventually(t, func() bool {
		got = append(got, w.Poll()...)
		return len(got) > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, got, "phong.frag.glsl")
	assert.NotContains(t, got, "notes.txt")
}
