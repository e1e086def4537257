// Package rendertarget provides offscreen framebuffers with color and depth
// texture attachments.
package rendertarget

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/engine/texture"
	"github.com/Faultbox/forge3d/internal/logger"
)

// ErrIncomplete is returned when the framebuffer fails its completeness check.
var ErrIncomplete = errors.New("framebuffer incomplete")

// Target is an offscreen render target. The color attachment is an
// ordinary texture and can be sampled by materials.
type Target struct {
	ctx    gfx.Context
	handle gfx.Framebuffer
	color  *texture.Texture
	depth  *texture.Texture
}

// Handle returns the framebuffer object.
func (t *Target) Handle() gfx.Framebuffer { return t.handle }

// ColorTexture returns the color attachment.
func (t *Target) ColorTexture() *texture.Texture { return t.color }

// DepthTexture returns the depth attachment.
func (t *Target) DepthTexture() *texture.Texture { return t.depth }

// Size returns the target dimensions.
func (t *Target) Size() (width, height int) {
	return t.color.Width, t.color.Height
}

// Resize reallocates both attachments if the size changed.
func (t *Target) Resize(width, height int) {
	width, height = clampSize(width, height)
	if width == t.color.Width && height == t.color.Height {
		return
	}

	t.ctx.BindTexture(t.color.Handle)
	t.ctx.TexImage2D(gfx.RGBA8, width, height, nil)
	t.ctx.BindTexture(t.depth.Handle)
	t.ctx.TexImage2D(gfx.Depth24, width, height, nil)
	t.ctx.BindTexture(0)

	t.color.Width, t.color.Height = width, height
	t.depth.Width, t.depth.Height = width, height
}

// Destroy releases all GPU resources.
func (t *Target) Destroy() {
	if t.handle != 0 {
		t.ctx.DeleteFramebuffer(t.handle)
		t.handle = 0
	}
	if t.color.Handle != 0 {
		t.ctx.DeleteTexture(t.color.Handle)
		t.color.Handle = 0
	}
	if t.depth.Handle != 0 {
		t.ctx.DeleteTexture(t.depth.Handle)
		t.depth.Handle = 0
	}
}

// Targets owns every render target created through it.
type Targets struct {
	ctx   gfx.Context
	items []*Target
}

// NewTargets creates an empty collection.
func NewTargets(ctx gfx.Context) *Targets {
	return &Targets{ctx: ctx}
}

// Create allocates a render target of the given size. Sizes below one are
// clamped to one.
func (ts *Targets) Create(width, height int) (*Target, error) {
	ctx := ts.ctx
	width, height = clampSize(width, height)

	color := createAttachment(ctx, gfx.RGBA8, gfx.Linear, width, height)
	depth := createAttachment(ctx, gfx.Depth24, gfx.Nearest, width, height)

	fb := ctx.CreateFramebuffer()
	ctx.BindFramebuffer(fb)
	ctx.FramebufferTexture2D(gfx.ColorAttachment0, color.Handle)
	ctx.FramebufferTexture2D(gfx.DepthAttachment, depth.Handle)

	complete := ctx.FramebufferComplete()
	ctx.BindFramebuffer(0)

	t := &Target{ctx: ctx, handle: fb, color: color, depth: depth}
	if !complete {
		t.Destroy()
		return nil, fmt.Errorf("creating render target %dx%d: %w", width, height, ErrIncomplete)
	}

	ts.items = append(ts.items, t)
	logger.Debug("render target created", zap.Int("width", width), zap.Int("height", height))
	return t, nil
}

// Items returns the targets in creation order.
func (ts *Targets) Items() []*Target { return ts.items }

// Len returns the number of live targets.
func (ts *Targets) Len() int { return len(ts.items) }

// Clear destroys every target.
func (ts *Targets) Clear() {
	for _, t := range ts.items {
		t.Destroy()
	}
	ts.items = nil
}

func createAttachment(ctx gfx.Context, format gfx.TextureFormat, filter gfx.Filter, width, height int) *texture.Texture {
	handle := ctx.CreateTexture()
	ctx.BindTexture(handle)
	ctx.TexImage2D(format, width, height, nil)
	ctx.TexFilter(filter, filter)
	ctx.TexWrap(gfx.ClampToEdge, gfx.ClampToEdge)
	ctx.BindTexture(0)
	return &texture.Texture{Handle: handle, Width: width, Height: height}
}

func clampSize(width, height int) (int, int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}
