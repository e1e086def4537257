package gltfimport

import (
	"bytes"
	"context"
	"io/fs"
	"net/url"
	"path"
	"time"

	"github.com/Faultbox/forge3d/internal/assets"
)

// assetFS exposes the asset manager to the glTF decoder so external
// buffers resolve relative to the model file through every asset root.
type assetFS struct {
	ctx context.Context
	m   *assets.Manager
	dir string
}

func (a *assetFS) Open(name string) (fs.File, error) {
	if uri, err := url.PathUnescape(name); err == nil {
		name = uri
	}
	full := assets.Clean(path.Join(a.dir, name))
	data, err := a.m.Load(a.ctx, full)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &memFile{Reader: bytes.NewReader(data), name: path.Base(full), size: int64(len(data))}, nil
}

type memFile struct {
	*bytes.Reader
	name string
	size int64
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f, nil }
func (f *memFile) Close() error               { return nil }

func (f *memFile) Name() string       { return f.name }
func (f *memFile) Size() int64        { return f.size }
func (f *memFile) Mode() fs.FileMode  { return 0o444 }
func (f *memFile) ModTime() time.Time { return time.Time{} }
func (f *memFile) IsDir() bool        { return false }
func (f *memFile) Sys() any           { return nil }
