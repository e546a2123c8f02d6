package dataset

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/votereport/internal/config"
	"github.com/seenimoa/votereport/pkg/models"
)

// ErrUnknownRace is returned by Cache.Race for keys that are not loaded.
var ErrUnknownRace = errors.New("unknown race")

// Snapshot is one immutable load of all configured races.
type Snapshot struct {
	Races      []models.Race
	Errors     []*models.LoadError
	LoadedAt   time.Time
	Generation int
}

// Keys lists the loaded race keys in configuration order.
func (s *Snapshot) Keys() []string {
	keys := make([]string, len(s.Races))
	for i, r := range s.Races {
		keys[i] = r.Key
	}
	return keys
}

// Cache holds the loaded races. It loads lazily on first access and changes
// only when Reload is called; readers always see a complete snapshot.
type Cache struct {
	sources []config.RaceSource
	opts    LoadOptions
	logger  *zap.Logger

	loadMu sync.Mutex
	snap   atomic.Pointer[Snapshot]

	subMu sync.Mutex
	subs  []func(*Snapshot)
}

// NewCache creates a cache over the given sources. Nothing is read until the
// first access.
func NewCache(sources []config.RaceSource, opts LoadOptions, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		sources: slices.Clone(sources),
		opts:    opts,
		logger:  logger,
	}
}

// NewCacheFromConfig wires a cache to the races and dataset sections.
func NewCacheFromConfig(cfg *config.Config, logger *zap.Logger) *Cache {
	return NewCache(cfg.Races, OptionsFromConfig(cfg), logger)
}

// Snapshot returns the current snapshot, loading it if needed.
func (c *Cache) Snapshot() *Snapshot {
	if s := c.snap.Load(); s != nil {
		return s
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if s := c.snap.Load(); s != nil {
		return s
	}
	return c.loadLocked(context.Background())
}

// Races returns the successfully loaded races in configuration order.
func (c *Cache) Races() []models.Race {
	return c.Snapshot().Races
}

// Errors returns the load errors of the current snapshot.
func (c *Cache) Errors() []*models.LoadError {
	return c.Snapshot().Errors
}

// Race looks up a loaded race by key.
func (c *Cache) Race(key string) (models.Race, error) {
	for _, r := range c.Snapshot().Races {
		if r.Key == key {
			return r, nil
		}
	}
	return models.Race{}, fmt.Errorf("%w: %q", ErrUnknownRace, key)
}

// Reload re-reads every source and swaps in the new snapshot. Subscribers
// are notified after the swap.
func (c *Cache) Reload(ctx context.Context) *Snapshot {
	c.loadMu.Lock()
	s := c.loadLocked(ctx)
	c.loadMu.Unlock()

	c.subMu.Lock()
	subs := slices.Clone(c.subs)
	c.subMu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
	return s
}

// OnReload registers fn to run after every explicit Reload.
func (c *Cache) OnReload(fn func(*Snapshot)) {
	c.subMu.Lock()
	c.subs = append(c.subs, fn)
	c.subMu.Unlock()
}

// Sources returns the configured sources.
func (c *Cache) Sources() []config.RaceSource {
	return slices.Clone(c.sources)
}

// Dir returns the base directory of relative sources.
func (c *Cache) Dir() string { return c.opts.Dir }

func (c *Cache) loadLocked(ctx context.Context) *Snapshot {
	start := time.Now()
	races, errs := LoadAll(ctx, c.sources, c.opts)

	gen := 1
	if prev := c.snap.Load(); prev != nil {
		gen = prev.Generation + 1
	}
	s := &Snapshot{
		Races:      races,
		Errors:     errs,
		LoadedAt:   time.Now(),
		Generation: gen,
	}
	c.snap.Store(s)

	for _, e := range errs {
		c.logger.Warn("race file not loaded",
			zap.String("race", e.Race),
			zap.String("source", e.Source),
			zap.String("kind", string(e.Kind)),
			zap.Error(e.Err),
		)
	}
	c.logger.Info("races loaded",
		zap.Int("loaded", len(races)),
		zap.Int("failed", len(errs)),
		zap.Int("generation", gen),
		zap.Duration("took", time.Since(start)),
	)
	return s
}
