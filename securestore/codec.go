package securestore

import (
	"context"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-tokenkeeper/internal/errors"
)

const (
	// ChunkSize is the largest value, in bytes, written to a single record.
	ChunkSize = 2048

	countSuffix = "_number"
)

// Codec splits values larger than ChunkSize across several backend records.
//
// A value of at most ChunkSize bytes is written under key unchanged. A larger
// value of n chunks is written as a count record key_number holding n, followed
// by chunk i under key_i.
type Codec struct {
	backend   Backend
	chunkSize int
}

type CodecOption func(*Codec)

// WithChunkSize overrides ChunkSize. Intended for backends with a smaller cap.
func WithChunkSize(size int) CodecOption {
	return func(c *Codec) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

func NewCodec(backend Backend, opts ...CodecOption) *Codec {
	c := &Codec{
		backend:   backend,
		chunkSize: ChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func countKey(key string) string {
	return key + countSuffix
}

func chunkKey(key string, i int) string {
	return key + "_" + strconv.Itoa(i)
}

// Store writes value under key, replacing whatever encoding was there before.
func (c *Codec) Store(ctx context.Context, key, value string) error {
	prev, hasPrev, err := c.chunkCount(ctx, key)
	malformed := errors.Is(err, errors.ErrDecode)
	if err != nil && !malformed {
		return err
	}

	if len(value) <= c.chunkSize {
		if hasPrev {
			if err := c.clearChunks(ctx, key, 0, prev, malformed); err != nil {
				return err
			}
			if err := c.delete(ctx, countKey(key)); err != nil {
				return err
			}
		}
		return c.put(ctx, key, value)
	}

	n := (len(value) + c.chunkSize - 1) / c.chunkSize
	if err := c.delete(ctx, key); err != nil {
		return err
	}
	if err := c.put(ctx, countKey(key), strconv.Itoa(n)); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		end := (i + 1) * c.chunkSize
		if end > len(value) {
			end = len(value)
		}
		if err := c.put(ctx, chunkKey(key, i), value[i*c.chunkSize:end]); err != nil {
			return err
		}
	}
	return c.clearChunks(ctx, key, n, prev, malformed)
}

// Load returns the value stored under key. ok is false when nothing is stored.
// A malformed count record or a missing chunk is reported as ErrDecode.
func (c *Codec) Load(ctx context.Context, key string) (value string, ok bool, err error) {
	n, hasCount, err := c.chunkCount(ctx, key)
	if err != nil {
		return "", false, err
	}

	if !hasCount {
		v, err := c.backend.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, errors.Mark(errors.Wrapf(err, "get %q", key), errors.ErrStorage)
		}
		return v, true, nil
	}

	var b strings.Builder
	b.Grow(n * c.chunkSize)
	for i := 0; i < n; i++ {
		chunk, err := c.backend.Get(ctx, chunkKey(key, i))
		if errors.Is(err, ErrNotFound) {
			return "", false, errors.Wrapf(errors.ErrDecode, "chunk %d of %d missing for %q", i, n, key)
		}
		if err != nil {
			return "", false, errors.Mark(errors.Wrapf(err, "get chunk %d of %q", i, key), errors.ErrStorage)
		}
		b.WriteString(chunk)
	}
	return b.String(), true, nil
}

// Erase removes every record written for key.
func (c *Codec) Erase(ctx context.Context, key string) error {
	n, hasCount, err := c.chunkCount(ctx, key)
	malformed := errors.Is(err, errors.ErrDecode)
	if err != nil && !malformed {
		return err
	}
	if hasCount {
		if err := c.clearChunks(ctx, key, 0, n, malformed); err != nil {
			return err
		}
		if err := c.delete(ctx, countKey(key)); err != nil {
			return err
		}
	}
	return c.delete(ctx, key)
}

// chunkCount reads the count record. present is true whenever the record
// exists, even if it could not be parsed.
func (c *Codec) chunkCount(ctx context.Context, key string) (n int, present bool, err error) {
	raw, err := c.backend.Get(ctx, countKey(key))
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Mark(errors.Wrapf(err, "get chunk count of %q", key), errors.ErrStorage)
	}
	n, err = strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, true, errors.Wrapf(errors.ErrDecode, "chunk count %q for %q", raw, key)
	}
	return n, true, nil
}

// clearChunks deletes chunks from index from up to to. When the count record
// could not be read, to is unknown and chunks are deleted until one is missing.
func (c *Codec) clearChunks(ctx context.Context, key string, from, to int, unknownCount bool) error {
	if !unknownCount {
		return c.deleteChunks(ctx, key, from, to)
	}
	for i := from; ; i++ {
		_, err := c.backend.Get(ctx, chunkKey(key, i))
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return errors.Mark(errors.Wrapf(err, "get chunk %d of %q", i, key), errors.ErrStorage)
		}
		if err := c.delete(ctx, chunkKey(key, i)); err != nil {
			return err
		}
	}
}

func (c *Codec) deleteChunks(ctx context.Context, key string, from, to int) error {
	for i := from; i < to; i++ {
		if err := c.delete(ctx, chunkKey(key, i)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Codec) put(ctx context.Context, key, value string) error {
	if err := c.backend.Put(ctx, key, value); err != nil {
		return errors.Mark(errors.Wrapf(err, "put %q", key), errors.ErrStorage)
	}
	return nil
}

func (c *Codec) delete(ctx context.Context, key string) error {
	if err := c.backend.Delete(ctx, key); err != nil {
		return errors.Mark(errors.Wrapf(err, "delete %q", key), errors.ErrStorage)
	}
	return nil
}
