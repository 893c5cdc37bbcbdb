package ordkv

import (
	"log/slog"

	"github.com/intellect4all/ordkv/pagecache"
)

type config struct {
	cache         pagecache.Cache
	logger        *slog.Logger
	maxLevelFanIn int
}

func defaultConfig() config {
	return config{
		cache:         pagecache.NewNullCache(),
		logger:        slog.Default(),
		maxLevelFanIn: 32,
	}
}

// Option configures a DB at Create/Open time.
type Option func(*config)

// WithCache overrides the page cache (default: NullCache, the REQUIRED
// baseline). Pass a pagecache.LRUCache for production use.
func WithCache(c pagecache.Cache) Option {
	return func(cfg *config) { cfg.cache = c }
}

// WithLogger overrides the structured logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// WithMaxLevelFanIn bounds how many slots a flush cascade may create
// before giving up with ErrOutOfCapacity, guarding against a runaway
// cascade on a pathological key distribution.
func WithMaxLevelFanIn(n int) Option {
	return func(cfg *config) { cfg.maxLevelFanIn = n }
}
