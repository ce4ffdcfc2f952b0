package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// Cache persists fetched documents. *store.Store satisfies it.
type Cache interface {
	GetIndex() (map[string][]string, time.Time, error)
	PutIndex(idx map[string][]string) error
	GetDataset(dataType, name string) ([]byte, time.Time, error)
	PutDataset(dataType, name string, body []byte) error
}

// CachedSource serves documents from a Cache, falling through to the wrapped
// Source on a miss or when the entry is older than TTL. A stale entry is still
// returned when the upstream fetch fails. A failed cache write is logged and
// never fails the fetch it follows.
type CachedSource struct {
	src   Source
	cache Cache
	ttl   time.Duration
	now   func() time.Time
	log   *log.Logger
}

// NewCachedSource wraps src. ttl <= 0 means entries never expire.
func NewCachedSource(src Source, cache Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{src: src, cache: cache, ttl: ttl, now: time.Now, log: log.New(io.Discard)}
}

// SetLogger sets where cache write failures are reported.
func (c *CachedSource) SetLogger(l *log.Logger) {
	if l != nil {
		c.log = l
	}
}

func (c *CachedSource) fresh(fetched time.Time) bool {
	return c.ttl <= 0 || c.now().Sub(fetched) < c.ttl
}

// Index returns the cached index when fresh, otherwise refetches it.
func (c *CachedSource) Index(ctx context.Context) (Index, error) {
	cached, fetched, cacheErr := c.cache.GetIndex()
	if cacheErr == nil && c.fresh(fetched) {
		return Index(cached), nil
	}

	idx, err := c.src.Index(ctx)
	if err != nil {
		if cacheErr == nil {
			return Index(cached), nil
		}
		return nil, err
	}
	if err := c.cache.PutIndex(idx); err != nil {
		c.log.Warn("cache index write failed", "err", err)
	}
	return idx, nil
}

// Load returns the cached dataset when fresh, otherwise refetches it.
func (c *CachedSource) Load(ctx context.Context, dataType, name string) (*Graph, error) {
	body, fetched, cacheErr := c.cache.GetDataset(dataType, name)
	if cacheErr == nil && c.fresh(fetched) {
		return Decode(body)
	}

	g, err := c.src.Load(ctx, dataType, name)
	if err != nil {
		if cacheErr == nil {
			return Decode(body)
		}
		return nil, err
	}
	if err := c.store(dataType, name, g); err != nil {
		c.log.Warn("cache write failed", "type", dataType, "name", name, "err", err)
	}
	return g, nil
}

// Refresh refetches a dataset from upstream and overwrites the cache entry.
// Unlike Load, a failed cache write is returned with the graph.
func (c *CachedSource) Refresh(ctx context.Context, dataType, name string) (*Graph, error) {
	g, err := c.src.Load(ctx, dataType, name)
	if err != nil {
		return nil, err
	}
	if err := c.store(dataType, name, g); err != nil {
		return g, err
	}
	return g, nil
}

func (c *CachedSource) store(dataType, name string, g *Graph) error {
	body, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	if err := c.cache.PutDataset(dataType, name, body); err != nil {
		return fmt.Errorf("cache dataset: %w", err)
	}
	return nil
}
