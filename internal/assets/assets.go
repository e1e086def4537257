// Package assets loads model, texture and shader files from local roots or
// a remote base URL and caches them in memory.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/Faultbox/forge3d/internal/logger"
)

// ErrNotFound is wrapped by FetchError when no source has the file.
var ErrNotFound = errors.New("asset not found")

// FetchError reports a failed load.
type FetchError struct {
	Path string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Path, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Config holds asset manager configuration.
type Config struct {
	// Roots are local directories searched in order, last added first.
	Roots []string
	// BaseURL is tried after every root when set.
	BaseURL string
	// Timeout bounds a single HTTP fetch.
	Timeout time.Duration
}

// Manager handles asset loading from file systems and HTTP.
type Manager struct {
	roots   []fs.FS
	baseURL *url.URL
	client  *http.Client
	cache   *Cache
	mu      sync.RWMutex
	log     *zap.Logger
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  NewCache(),
		log:    logger.Named("assets"),
	}
}

// NewManagerFromConfig creates a manager with cfg's roots and base URL.
func NewManagerFromConfig(cfg Config) (*Manager, error) {
	m := NewManager()
	for _, dir := range cfg.Roots {
		if err := m.AddDir(dir); err != nil {
			return nil, err
		}
	}
	if cfg.BaseURL != "" {
		if err := m.SetBaseURL(cfg.BaseURL); err != nil {
			return nil, err
		}
	}
	if cfg.Timeout > 0 {
		m.client.Timeout = cfg.Timeout
	}
	return m, nil
}

// AddRoot adds a file system to search.
// Roots are searched in reverse order (last added = highest priority).
func (m *Manager) AddRoot(fsys fs.FS) {
	m.mu.Lock()
	m.roots = append(m.roots, fsys)
	m.mu.Unlock()
}

// AddDir adds a local directory as a root.
func (m *Manager) AddDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("adding asset root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("adding asset root %s: not a directory", dir)
	}
	m.AddRoot(os.DirFS(dir))
	return nil
}

// SetBaseURL sets the remote location tried after the roots.
func (m *Manager) SetBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL %q: unsupported scheme", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	m.mu.Lock()
	m.baseURL = u
	m.mu.Unlock()
	return nil
}

// SetClient replaces the HTTP client.
func (m *Manager) SetClient(c *http.Client) {
	m.mu.Lock()
	m.client = c
	m.mu.Unlock()
}

// Cache returns the manager's cache.
func (m *Manager) Cache() *Cache { return m.cache }

// Load returns the contents of name, a slash-separated path relative to
// the roots and the base URL.
func (m *Manager) Load(ctx context.Context, name string) ([]byte, error) {
	name = Clean(name)

	// Check cache first
	if data, ok := m.cache.Get(name); ok {
		return data, nil
	}

	m.mu.RLock()
	roots := m.roots
	base := m.baseURL
	client := m.client
	m.mu.RUnlock()

	if !fs.ValidPath(name) {
		return nil, &FetchError{Path: name, Err: fmt.Errorf("invalid path")}
	}

	for i := len(roots) - 1; i >= 0; i-- {
		data, err := fs.ReadFile(roots[i], name)
		if err == nil {
			m.cache.Set(name, data)
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, &FetchError{Path: name, Err: err}
		}
	}

	if base == nil {
		return nil, &FetchError{Path: name, Err: ErrNotFound}
	}

	data, err := fetch(ctx, client, base.ResolveReference(&url.URL{Path: name}).String())
	if err != nil {
		return nil, &FetchError{Path: name, Err: err}
	}
	m.cache.Set(name, data)
	m.log.Debug("asset fetched", zap.String("path", name), zap.Int("bytes", len(data)))
	return data, nil
}

func fetch(ctx context.Context, client *http.Client, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Clean normalizes an asset path: it is converted to NFC, backslashes become
// slashes and leading slashes and dot segments are removed.
func Clean(name string) string {
	name = norm.NFC.String(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean("/" + name)
	return strings.TrimPrefix(name, "/")
}

// Close drops every root and clears the cache.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roots = nil
	m.baseURL = nil
	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Delete removes an item, used when a watched file changes.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Len returns the number of cached items.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
