package shader

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/forge3d/internal/engine/gfx"
	"github.com/Faultbox/forge3d/internal/logger"
)

// Target is the material side of a program lookup.
type Target interface {
	Shader() *Shader
	FeatureMask() uint32
	// Defines returns the feature defines for the active optional inputs.
	Defines() []string
	SetProgram(p *Program)
}

// Layout is the geometry side of a program lookup.
type Layout interface {
	AttributeMask() gfx.AttributeMask
}

// ErrNoShader is returned for a target without a shader family.
var ErrNoShader = errors.New("material has no shader")

// Stats counts cache activity.
type Stats struct {
	Compiled int
	Hits     int
	Failures int
	Programs int
}

// Cache compiles program variants on demand and owns them until Clear or
// Evict.
type Cache struct {
	ctx      gfx.Context
	lib      *Library
	programs map[*Shader][]*Program
	stats    Stats
	log      *zap.Logger
}

// NewCache creates a cache compiling with the common sources of lib.
func NewCache(ctx gfx.Context, lib *Library) *Cache {
	return &Cache{
		ctx:      ctx,
		lib:      lib,
		programs: make(map[*Shader][]*Program),
		log:      logger.Named("shader"),
	}
}

// UpdateProgram resolves the program for target drawn with layout and binds
// it to target. A miss compiles a new variant. On failure target is left
// without a program and nothing is cached, so the next call retries.
func (c *Cache) UpdateProgram(target Target, layout Layout) (*Program, error) {
	target.SetProgram(nil)

	s := target.Shader()
	if s == nil {
		return nil, ErrNoShader
	}

	hash := Hash(layout.AttributeMask(), target.FeatureMask())
	for _, p := range c.programs[s] {
		if p.Hash == hash {
			c.stats.Hits++
			target.SetProgram(p)
			return p, nil
		}
	}

	p, err := c.compile(s, layout.AttributeMask(), target.Defines(), hash)
	if err != nil {
		c.stats.Failures++
		c.log.Error("program compile failed",
			zap.String("shader", s.Name),
			zap.Uint32("hash", hash),
			zap.Error(err),
		)
		return nil, err
	}

	c.programs[s] = append(c.programs[s], p)
	c.stats.Compiled++
	target.SetProgram(p)

	c.log.Debug("program compiled",
		zap.String("shader", s.Name),
		zap.Uint32("hash", hash),
		zap.Uint32("handle", uint32(p.Handle)),
	)
	return p, nil
}

func (c *Cache) compile(s *Shader, attributes gfx.AttributeMask, features []string, hash uint32) (*Program, error) {
	defines := make([]string, 0, 8)
	defines = append(defines, AttributeDefines(attributes)...)
	defines = append(defines, s.Defines...)
	defines = append(defines, features...)

	header := InjectDefines(c.lib.Header(), defines)
	vertexSrc := header + c.lib.CommonVertex() + s.VertexSource
	fragmentSrc := header + s.FragmentSource

	handle, err := compileProgram(c.ctx, s.Name, vertexSrc, fragmentSrc)
	if err != nil {
		return nil, err
	}

	global := c.ctx.UniformBlockIndex(handle, GlobalBlockName)
	object := c.ctx.UniformBlockIndex(handle, ObjectBlockName)
	if global == gfx.InvalidIndex || object == gfx.InvalidIndex {
		c.ctx.DeleteProgram(handle)
		missing := GlobalBlockName
		if global != gfx.InvalidIndex {
			missing = ObjectBlockName
		}
		return nil, fmt.Errorf("shader %s: %w %s", s.Name, ErrMissingUniformBlock, missing)
	}

	p := &Program{
		Handle:      handle,
		Hash:        hash,
		GlobalBlock: global,
		ObjectBlock: object,
		locations:   make(map[string]gfx.Uniform, len(s.Uniforms)),
	}
	for _, name := range s.Uniforms {
		p.locations[name] = c.ctx.UniformLocation(handle, name)
	}
	return p, nil
}

// Programs returns the compiled variants of s in compile order.
func (c *Cache) Programs(s *Shader) []*Program {
	return c.programs[s]
}

// Len returns the number of compiled programs across all families.
func (c *Cache) Len() int {
	n := 0
	for _, ps := range c.programs {
		n += len(ps)
	}
	return n
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() Stats {
	st := c.stats
	st.Programs = c.Len()
	return st
}

// Evict deletes every variant of s. Materials still pointing at them must
// be re-resolved with UpdateProgram.
func (c *Cache) Evict(s *Shader) int {
	ps := c.programs[s]
	for _, p := range ps {
		c.ctx.DeleteProgram(p.Handle)
	}
	delete(c.programs, s)
	if len(ps) > 0 {
		c.log.Debug("programs evicted", zap.String("shader", s.Name), zap.Int("count", len(ps)))
	}
	return len(ps)
}

// Clear deletes every compiled program.
func (c *Cache) Clear() {
	n := 0
	for s, ps := range c.programs {
		for _, p := range ps {
			c.ctx.DeleteProgram(p.Handle)
		}
		n += len(ps)
		delete(c.programs, s)
	}
	c.stats = Stats{}
	c.log.Debug("program cache cleared", zap.Int("count", n))
}
