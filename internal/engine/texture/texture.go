package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sort"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/logger"
)

// Names of the textures created by CreateDefaults.
const (
	WhiteName = "__default_white__"
	BlackName = "__default_black__"
)

var (
	// ErrUnsupportedFormat is returned for encoded data that no registered
	// image decoder accepts.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrExists is returned when a texture name is already registered.
	ErrExists = errors.New("texture already exists")
)

// supportedMIME lists the image types with a registered decoder.
var supportedMIME = map[string]bool{
	"image/png":   true,
	"image/jpeg":  true,
	"image/gif":   true,
	"image/bmp":   true,
	"image/tiff":  true,
	"image/webp":  true,
	"image/tga":   true,
	"image/x-tga": true,
}

// Texture is a GPU-resident 2D texture.
type Texture struct {
	Name   string
	Handle gfx.Texture
	Width  int
	Height int
}

// Registry owns named textures and is the only place their GPU handles are
// released.
type Registry struct {
	ctx      gfx.Context
	textures map[string]*Texture
	log      *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(ctx gfx.Context) *Registry {
	return &Registry{
		ctx:      ctx,
		textures: make(map[string]*Texture),
		log:      logger.Named("texture"),
	}
}

// CreateDefaults creates the 1x1 white and black textures used when a
// material needs a neutral map.
func (r *Registry) CreateDefaults() error {
	if !r.Has(WhiteName) {
		if _, err := r.Create(WhiteName, 1, 1, []byte{255, 255, 255, 255}); err != nil {
			return err
		}
	}
	if !r.Has(BlackName) {
		if _, err := r.Create(BlackName, 1, 1, []byte{0, 0, 0, 255}); err != nil {
			return err
		}
	}
	return nil
}

// White returns the default white texture, or nil before CreateDefaults.
func (r *Registry) White() *Texture { return r.textures[WhiteName] }

// Black returns the default black texture, or nil before CreateDefaults.
func (r *Registry) Black() *Texture { return r.textures[BlackName] }

// Create uploads tightly packed RGBA8 pixels.
func (r *Registry) Create(name string, width, height int, rgba []byte) (*Texture, error) {
	if _, ok := r.textures[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrExists, name)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("texture %q: invalid size %dx%d", name, width, height)
	}
	if len(rgba) != width*height*4 {
		return nil, fmt.Errorf("texture %q: expected %d bytes of RGBA data, got %d", name, width*height*4, len(rgba))
	}

	handle := r.ctx.CreateTexture()
	r.ctx.BindTexture(handle)
	r.ctx.TexImage2D(gfx.RGBA8, width, height, rgba)
	r.ctx.TexWrap(gfx.Repeat, gfx.Repeat)
	r.ctx.TexFilter(gfx.LinearMipmapLinear, gfx.Linear)
	r.ctx.GenerateMipmap()

	t := &Texture{Name: name, Handle: handle, Width: width, Height: height}
	r.textures[name] = t

	r.log.Debug("texture created",
		zap.String("name", name),
		zap.Int("width", width),
		zap.Int("height", height),
	)
	return t, nil
}

// CreateFromImage converts img to RGBA and uploads it.
func (r *Registry) CreateFromImage(name string, img image.Image) (*Texture, error) {
	rgba := ToRGBA(img)
	b := rgba.Bounds()
	return r.Create(name, b.Dx(), b.Dy(), rgba.Pix)
}

// CreateFromBytes decodes an encoded image and uploads it. When mime is
// empty the type is sniffed from the data.
func (r *Registry) CreateFromBytes(name string, data []byte, mime string) (*Texture, error) {
	img, err := Decode(data, mime)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", name, err)
	}
	return r.CreateFromImage(name, img)
}

// Get returns a texture by name.
func (r *Registry) Get(name string) (*Texture, bool) {
	t, ok := r.textures[name]
	return t, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.textures[name]
	return ok
}

// Len returns the number of registered textures.
func (r *Registry) Len() int { return len(r.textures) }

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.textures))
	for name := range r.textures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear deletes every texture, defaults included.
func (r *Registry) Clear() {
	for _, t := range r.textures {
		r.ctx.DeleteTexture(t.Handle)
	}
	r.log.Debug("textures released", zap.Int("count", len(r.textures)))
	r.textures = make(map[string]*Texture)
}

// DetectMIME sniffs the MIME type of encoded image data. It returns an
// empty string when the type is unknown.
func DetectMIME(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}

// Decode decodes an encoded image. An empty mime lets the data decide.
func Decode(data []byte, mime string) (image.Image, error) {
	if mime == "" {
		mime = DetectMIME(data)
	}
	if mime != "" && !supportedMIME[mime] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if errors.Is(err, image.ErrFormat) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// ToRGBA converts any image to *image.RGBA anchored at the origin.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
