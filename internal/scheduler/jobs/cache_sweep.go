package jobs

import (
	"context"

	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// Sweeper removes expired entries from a cache, returning how many were
// evicted.
type Sweeper interface {
	Sweep() int
}

// CacheSweepJob periodically evicts expired entries from the TTL caches so
// long-idle processes do not accumulate dead datasets.
type CacheSweepJob struct {
	caches map[string]Sweeper
	logger *logger.Logger
}

// NewCacheSweepJob creates a sweep job over the named caches.
func NewCacheSweepJob(caches map[string]Sweeper, log *logger.Logger) *CacheSweepJob {
	return &CacheSweepJob{
		caches: caches,
		logger: log,
	}
}

func (j *CacheSweepJob) Name() string {
	return "cache_sweep"
}

// Schedule runs every 10 minutes.
func (j *CacheSweepJob) Schedule() string {
	return "0 */10 * * * *"
}

func (j *CacheSweepJob) Run(ctx context.Context) error {
	for name, cache := range j.caches {
		if evicted := cache.Sweep(); evicted > 0 {
			j.logger.WithFields(map[string]interface{}{
				"cache":   name,
				"evicted": evicted,
			}).Debug("Swept expired cache entries")
		}
	}
	return nil
}
