package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"github.com/zeusync/arcade/internal/core/observability/log"
	"github.com/zeusync/arcade/pkg/concurrent"
	"github.com/zeusync/arcade/pkg/sequence"
)

const defaultPreloadLimit = 4

// Loader reads sprites from a file system and caches them by path. Every
// caller receives its own clone, so mutating a returned sprite never leaks
// into the cache.
type Loader struct {
	fsys   fs.FS
	logger log.Log
	limit  int

	mu    sync.RWMutex
	cache map[string]*Sprite
}

type LoaderOption func(*Loader)

// WithPreloadLimit bounds the number of files Preload reads at once.
func WithPreloadLimit(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.limit = n
		}
	}
}

func NewLoader(fsys fs.FS, logger log.Log, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = log.NewNop()
	}
	l := &Loader{
		fsys:   fsys,
		logger: logger.With(log.String("component", "assets")),
		limit:  defaultPreloadLimit,
		cache:  make(map[string]*Sprite),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns a clone of the sprite at p, or nil when it cannot be loaded.
// Failures are logged; callers fall back to a default visual.
func (l *Loader) Load(ctx context.Context, p string) *Sprite {
	s, err := l.load(ctx, p)
	if err != nil {
		l.logger.Warn("sprite load failed", log.String("path", p), log.Error(err))
		return nil
	}
	return s.Clone()
}

// Preload loads every path concurrently and reports all failures. Loaded
// sprites are cached even when others fail.
func (l *Loader) Preload(ctx context.Context, paths []string) error {
	err := concurrent.All(ctx, sequence.From(paths), l.limit, func(ctx context.Context, p string) error {
		_, err := l.load(ctx, p)
		return err
	})
	if err != nil {
		l.logger.Warn("sprite preload incomplete", log.Int("requested", len(paths)), log.Error(err))
		return err
	}
	l.logger.Debug("sprites preloaded", log.Int("count", len(paths)))
	return nil
}

func (l *Loader) load(ctx context.Context, p string) (*Sprite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p = path.Clean(p)

	l.mu.RLock()
	cached, ok := l.cache[p]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if l.fsys == nil {
		return nil, fmt.Errorf("%w: %s", ErrSpriteNotFound, p)
	}
	data, err := fs.ReadFile(l.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSpriteNotFound, p)
		}
		return nil, fmt.Errorf("read sprite %s: %w", p, err)
	}
	s, err := ParseSprite(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	l.mu.Lock()
	if existing, ok := l.cache[p]; ok {
		s = existing
	} else {
		l.cache[p] = s
	}
	l.mu.Unlock()
	return s, nil
}

// Cached reports whether p is in the cache.
func (l *Loader) Cached(p string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.cache[path.Clean(p)]
	return ok
}

func (l *Loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}

// Clear drops every cached sprite.
func (l *Loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.cache)
}
