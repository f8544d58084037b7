// Package modelcache holds trained performance models keyed by player
// identity. Entries go stale after a validity window and are refit on next
// lookup; concurrent lookups for the same stale player share a single fit.
package modelcache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/stitts-dev/league-sim/internal/model"
	"github.com/stitts-dev/league-sim/pkg/metrics"
)

// FitFunc trains a model from a player's weekly scores.
type FitFunc func(scores []float64) (*model.PerformanceModel, error)

// Entry is one cached fit. Entries are superseded on refit, never mutated.
type Entry struct {
	PlayerID string                  `json:"player_id"`
	Model    *model.PerformanceModel `json:"model"`
	FitTime  time.Time               `json:"fit_time"`
}

// Store persists fitted models so a restart can rehydrate without raw history.
type Store interface {
	// Load returns the stored entry for a player, or nil when absent.
	Load(ctx context.Context, playerID string) (*Entry, error)
	Save(ctx context.Context, entry *Entry) error
	Purge(ctx context.Context) error
}

// Cache is the in-process model cache. It is safe for concurrent use.
type Cache struct {
	ttl   time.Duration
	fit   FitFunc
	store Store
	log   *logrus.Entry

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]*Entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore attaches a write-through persistence layer.
func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

// WithLogger attaches a logger entry.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Cache) { c.log = log }
}

// New creates a cache whose entries are valid for ttl after fitting.
func New(ttl time.Duration, fit FitFunc, opts ...Option) *Cache {
	c := &Cache{
		ttl:     ttl,
		fit:     fit,
		entries: make(map[string]*Entry),
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFit returns the cached model for a player when its entry is still
// within the validity window, otherwise fits exactly once and stores the
// result stamped with now. Concurrent callers for the same stale or missing
// player wait for and share the first caller's fit.
func (c *Cache) GetOrFit(ctx context.Context, playerID string, history []float64, now time.Time) (*model.PerformanceModel, error) {
	if m := c.lookup(playerID, now); m != nil {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return m, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()

	v, err, _ := c.group.Do(playerID, func() (interface{}, error) {
		// another flight may have completed while we waited
		if m := c.lookup(playerID, now); m != nil {
			return m, nil
		}

		if c.store != nil {
			if entry, err := c.store.Load(ctx, playerID); err != nil {
				c.log.WithError(err).WithField("player_id", playerID).Warn("Model store load failed, refitting")
			} else if entry != nil && now.Sub(entry.FitTime) < c.ttl {
				metrics.CacheLookupsTotal.WithLabelValues("store_hit").Inc()
				c.put(entry)
				return entry.Model, nil
			}
		}

		m, err := c.fit(history)
		if err != nil {
			metrics.ModelFitsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		outcome := "mixture"
		if m.Degenerate {
			outcome = "degenerate"
		}
		metrics.ModelFitsTotal.WithLabelValues(outcome).Inc()

		entry := &Entry{PlayerID: playerID, Model: m, FitTime: now}
		c.put(entry)
		if c.store != nil {
			if err := c.store.Save(ctx, entry); err != nil {
				c.log.WithError(err).WithField("player_id", playerID).Warn("Model store save failed")
			}
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.PerformanceModel), nil
}

// lookup returns the model when a valid entry exists.
func (c *Cache) lookup(playerID string, now time.Time) *model.PerformanceModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[playerID]
	if !ok || now.Sub(entry.FitTime) >= c.ttl {
		return nil
	}
	return entry.Model
}

func (c *Cache) put(entry *Entry) {
	c.mu.Lock()
	c.entries[entry.PlayerID] = entry
	c.mu.Unlock()
}

// Entries returns a snapshot of all cached entries.
func (c *Cache) Entries() []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	return out
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes every entry, and purges the attached store when present.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Purge(ctx); err != nil {
			c.log.WithError(err).Warn("Model store purge failed")
		}
	}
}
