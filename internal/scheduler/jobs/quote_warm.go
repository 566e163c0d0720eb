package jobs

import (
	"context"
	"time"

	"github.com/anaysomani05/opti-invest/internal/portfolio"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// QuoteWarmJob refreshes quotes for every tracked symbol ahead of user
// traffic, so portfolio reads hit a warm cache instead of the rate budget.
type QuoteWarmJob struct {
	portfolio *portfolio.Service
	logger    *logger.Logger
}

// NewQuoteWarmJob creates a quote warming job.
func NewQuoteWarmJob(svc *portfolio.Service, log *logger.Logger) *QuoteWarmJob {
	return &QuoteWarmJob{
		portfolio: svc,
		logger:    log,
	}
}

func (j *QuoteWarmJob) Name() string {
	return "quote_warm"
}

// Schedule runs every 5 minutes, matching the quote TTL.
func (j *QuoteWarmJob) Schedule() string {
	return "0 */5 * * * *"
}

func (j *QuoteWarmJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	holdings, err := j.portfolio.HoldingsWithCurrentPrices(ctx)
	if err != nil {
		return err
	}

	stale := 0
	for i := range holdings {
		if holdings[i].PriceStale {
			stale++
		}
	}
	j.logger.WithFields(map[string]interface{}{
		"symbols": len(holdings),
		"stale":   stale,
	}).Debug("Warmed quote cache")

	return nil
}
