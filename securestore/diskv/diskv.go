// Package diskv stores each record as a file in a single directory.
package diskv

import (
	"context"
	"io/fs"

	"github.com/jrsteele09/go-tokenkeeper/internal/errors"
	"github.com/jrsteele09/go-tokenkeeper/securestore"
	"github.com/peterbourgon/diskv/v3"
)

var _ securestore.Backend = (*Backend)(nil)

const (
	cacheSizeMaxBytes = 64 * 1024

	filePerm = 0o600
	pathPerm = 0o700
)

type Backend struct {
	dv *diskv.Diskv
}

// New stores records under dir, creating it on first write.
func New(dir string) *Backend {
	// Simplest transform function: put all the data files into the base dir.
	flatTransform := func(s string) []string { return []string{} }

	return &Backend{
		dv: diskv.New(diskv.Options{
			BasePath:     dir,
			Transform:    flatTransform,
			CacheSizeMax: cacheSizeMaxBytes,
			FilePerm:     filePerm,
			PathPerm:     pathPerm,
		}),
	}
}

func (b *Backend) Put(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.dv.WriteString(key, value)
}

func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := b.dv.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return "", securestore.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.dv.Erase(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
