package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/forge3d/internal/engine/gfx/gfxtest"
)

// tgaImage builds a 2x2 uncompressed 32-bit TGA stored bottom-to-top.
func tgaImage() []byte {
	header := make([]byte, tgaHeaderSize)
	header[2] = TGATypeUncompressed
	header[12] = 2
	header[14] = 2
	header[16] = 32
	pixels := []byte{
		// bottom row: red, green (BGRA)
		0, 0, 255, 255, 0, 255, 0, 255,
		// top row: blue, white
		255, 0, 0, 255, 255, 255, 255, 128,
	}
	return append(header, pixels...)
}

func TestDecodeTGA(t *testing.T) {
	img, err := DecodeTGA(tgaImage())
	require.NoError(t, err)

	rgba := img.(*image.RGBA)
	assert.Equal(t, color.RGBA{B: 255, A: 255}, rgba.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 128}, rgba.RGBAAt(1, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgba.RGBAAt(0, 1))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, rgba.RGBAAt(1, 1))
}

func TestDecodeTGARLE(t *testing.T) {
	header := make([]byte, tgaHeaderSize)
	header[2] = TGATypeRLE
	header[12] = 3
	header[14] = 1
	header[16] = 24
	header[17] = 0x20
	// One run packet of 3 pixels.
	data := append(header, 0x82, 10, 20, 30)

	img, err := DecodeTGA(data)
	require.NoError(t, err)
	rgba := img.(*image.RGBA)
	for x := 0; x < 3; x++ {
		assert.Equal(t, color.RGBA{R: 30, G: 20, B: 10, A: 255}, rgba.RGBAAt(x, 0))
	}
}

func TestDecodeTGAErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short header", []byte{0, 0, 2}},
		{"color mapped", func() []byte { d := tgaImage(); d[1] = 1; return d }()},
		{"bad depth", func() []byte { d := tgaImage(); d[16] = 16; return d }()},
		{"truncated pixels", tgaImage()[:tgaHeaderSize+5]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTGA(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestDecodeRegisteredTGA(t *testing.T) {
	img, format, err := image.Decode(bytes.NewReader(tgaImage()))
	require.NoError(t, err)
	assert.Equal(t, "tga", format)
	assert.Equal(t, 2, img.Bounds().Dx())
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.SetRGBA(1, 1, color.RGBA{R: 9, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRegistryDefaults(t *testing.T) {
	rec := gfxtest.New(64, 64)
	r := NewRegistry(rec)

	require.NoError(t, r.CreateDefaults())
	require.NotNil(t, r.White())
	require.NotNil(t, r.Black())
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2, rec.LiveTextures())
	assert.Equal(t, 2, rec.Count("GenerateMipmap"))

	// Idempotent.
	require.NoError(t, r.CreateDefaults())
	assert.Equal(t, 2, r.Len())
}

func TestRegistryCreate(t *testing.T) {
	rec := gfxtest.New(64, 64)
	r := NewRegistry(rec)

	tex, err := r.CreateFromBytes("albedo", encodePNG(t), "")
	require.NoError(t, err)
	assert.Equal(t, 4, tex.Width)
	assert.Equal(t, 2, tex.Height)

	_, err = r.CreateFromBytes("albedo", encodePNG(t), "image/png")
	assert.ErrorIs(t, err, ErrExists)

	_, err = r.Create("bad", 2, 2, make([]byte, 3))
	assert.Error(t, err)

	got, ok := r.Get("albedo")
	require.True(t, ok)
	assert.Same(t, tex, got)
	assert.Equal(t, []string{"albedo"}, r.Names())
}

func TestRegistryUnsupported(t *testing.T) {
	r := NewRegistry(gfxtest.New(1, 1))

	_, err := r.CreateFromBytes("doc", []byte("%PDF-1.4 not an image"), "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = r.CreateFromBytes("noise", []byte{1, 2, 3, 4, 5, 6, 7, 8}, "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = r.CreateFromBytes("declared", encodePNG(t), "text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRegistryClear(t *testing.T) {
	rec := gfxtest.New(1, 1)
	r := NewRegistry(rec)
	require.NoError(t, r.CreateDefaults())

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, rec.LiveTextures())
	assert.Nil(t, r.White())
}

func TestToRGBAOffsetImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 7, 6))
	src.Set(6, 5, color.NRGBA{G: 200, A: 255})

	out := ToRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 2, 1), out.Bounds())
	assert.Equal(t, color.RGBA{G: 200, A: 255}, out.RGBAAt(1, 0))
}
