// Package debug provides debug capture utilities.
package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/engine/rendertarget"
	"github.com/Faultbox/forge3d/internal/logger"
)

// Screenshots writes framebuffer contents to timestamped PNG files.
type Screenshots struct {
	outputDir string
	prefix    string

	// now is replaced in tests.
	now func() time.Time
	seq int
}

// NewScreenshots creates a capture writing prefix_<time>.png files to
// outputDir. An empty outputDir means the working directory.
func NewScreenshots(outputDir, prefix string) *Screenshots {
	return &Screenshots{
		outputDir: outputDir,
		prefix:    prefix,
		now:       time.Now,
	}
}

// SetOutputDir sets the output directory for screenshots.
func (s *Screenshots) SetOutputDir(dir string) {
	s.outputDir = dir
}

// Capture saves the default framebuffer.
func (s *Screenshots) Capture(ctx gfx.Context) (string, error) {
	width, height := ctx.DrawingBufferSize()
	ctx.BindFramebuffer(0)
	return s.SavePixels(ctx.ReadPixels(0, 0, width, height), width, height)
}

// CaptureTarget saves the color attachment of t. The default framebuffer
// is bound again afterwards.
func (s *Screenshots) CaptureTarget(ctx gfx.Context, t *rendertarget.Target) (string, error) {
	width, height := t.Size()
	ctx.BindFramebuffer(t.Handle())
	pixels := ctx.ReadPixels(0, 0, width, height)
	ctx.BindFramebuffer(0)
	return s.SavePixels(pixels, width, height)
}

// SavePixels saves raw RGBA pixels with width*height*4 bytes.
// The rows are flipped since OpenGL has its origin at bottom-left.
func (s *Screenshots) SavePixels(pixels []byte, width, height int) (string, error) {
	if len(pixels) != width*height*4 {
		return "", fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		srcOffset := (height - 1 - y) * rowSize
		dstOffset := y * img.Stride
		copy(img.Pix[dstOffset:dstOffset+rowSize], pixels[srcOffset:srcOffset+rowSize])
	}

	return s.SaveImage(img)
}

// SaveImage saves an existing image.
func (s *Screenshots) SaveImage(img image.Image) (string, error) {
	if s.outputDir != "" {
		if err := os.MkdirAll(s.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := s.Filename()
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}

	logger.Info("screenshot saved", zap.String("file", filename))
	return filename, nil
}

// Filename returns the next screenshot file name. A sequence number keeps
// captures taken within the same second apart.
func (s *Screenshots) Filename() string {
	s.seq++
	timestamp := s.now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("%s_%s_%03d.png", s.prefix, timestamp, s.seq)
	if s.outputDir != "" {
		filename = filepath.Join(s.outputDir, filename)
	}
	return filename
}
