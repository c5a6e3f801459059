// Package cached wraps any embedder with a read-through ristretto
// cache. Embedders are deterministic within one deployed model
// version, so a cache hit is always equivalent to recomputation; the
// win is skipping model inference or a network round trip when the
// same canonical text is embedded again.
package cached

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/swasthya/swasthya-go/memory"
)

// maxCachedBytes bounds the cache at roughly 32 MiB of vectors.
const maxCachedBytes = 32 << 20

// Embedder is a caching wrapper around another memory.Embedder.
type Embedder struct {
	inner memory.Embedder
	cache *ristretto.Cache
}

// New wraps inner with a fresh cache.
func New(inner memory.Embedder) (*Embedder, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxCachedBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Embedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text, or computes and caches it.
// Callers get their own copy; the cached vector is never aliased.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return append([]float32(nil), vec...), nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, append([]float32(nil), vec...), int64(len(vec)*4))
	return vec, nil
}

// Dimensions returns the wrapped embedder's size.
func (e *Embedder) Dimensions() int { return e.inner.Dimensions() }

// Wait blocks until pending cache writes are applied. Ristretto admits
// entries asynchronously; tests call this before asserting hits.
func (e *Embedder) Wait() { e.cache.Wait() }

// Close releases the cache.
func (e *Embedder) Close() { e.cache.Close() }
