package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nguyenduc/fintrack/internal/breaker"
	"github.com/nguyenduc/fintrack/internal/clients/stockapi"
	"github.com/nguyenduc/fintrack/internal/domain"
	"github.com/nguyenduc/fintrack/internal/locking"
	"github.com/nguyenduc/fintrack/internal/modules/investment"
)

// PriceSource is the quote port the sync job fetches from
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (*stockapi.Quote, error)
	Probe(ctx context.Context, symbol string) error
}

// PriceSyncConfig holds configuration for the price sync job
type PriceSyncConfig struct {
	Log            zerolog.Logger
	LockManager    *locking.Manager
	Service        *investment.Service
	Source         PriceSource
	Breaker        *breaker.Breaker
	ProbeSymbol    string
	FetchTimeout   time.Duration
	ProbeTimeout   time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// PriceSyncJob refreshes the market price of every syncable investment.
// One degraded upstream must never produce partial writes: a symbol either
// gets a valid price applied to all its investments or is skipped whole.
type PriceSyncJob struct {
	log            zerolog.Logger
	lockManager    *locking.Manager
	service        *investment.Service
	source         PriceSource
	breaker        *breaker.Breaker
	probeSymbol    string
	fetchTimeout   time.Duration
	probeTimeout   time.Duration
	retryAttempts  int
	retryBaseDelay time.Duration
	sleep          func(time.Duration)
}

// NewPriceSyncJob creates a new price sync job
func NewPriceSyncJob(cfg PriceSyncConfig) *PriceSyncJob {
	j := &PriceSyncJob{
		log:            cfg.Log.With().Str("job", "price_sync").Logger(),
		lockManager:    cfg.LockManager,
		service:        cfg.Service,
		source:         cfg.Source,
		breaker:        cfg.Breaker,
		probeSymbol:    cfg.ProbeSymbol,
		fetchTimeout:   cfg.FetchTimeout,
		probeTimeout:   cfg.ProbeTimeout,
		retryAttempts:  cfg.RetryAttempts,
		retryBaseDelay: cfg.RetryBaseDelay,
		sleep:          time.Sleep,
	}
	if j.fetchTimeout <= 0 {
		j.fetchTimeout = 10 * time.Second
	}
	if j.probeTimeout <= 0 {
		j.probeTimeout = 3 * time.Second
	}
	if j.retryAttempts <= 0 {
		j.retryAttempts = 3
	}
	if j.retryBaseDelay <= 0 {
		j.retryBaseDelay = time.Second
	}
	return j
}

// Name returns the job name
func (j *PriceSyncJob) Name() string {
	return "price_sync"
}

// Run executes one sync tick
func (j *PriceSyncJob) Run() error {
	if err := j.lockManager.Acquire("price_sync"); err != nil {
		j.log.Warn().Err(err).Msg("Price sync already running, skipping tick")
		return nil
	}
	defer j.lockManager.Release("price_sync")

	if !j.breaker.AllowCall() {
		j.log.Warn().
			Int("failures", j.breaker.Failures()).
			Msg("Circuit breaker open, skipping tick")
		return nil
	}

	if err := j.probe(); err != nil {
		j.breaker.RecordFailure()
		j.log.Warn().Err(err).Msg("Price source probe failed, skipping tick")
		return nil
	}

	list, err := j.service.ListSyncable()
	if err != nil {
		return fmt.Errorf("failed to load syncable investments: %w", err)
	}
	if len(list) == 0 {
		j.log.Debug().Msg("No syncable investments")
		return nil
	}

	// One fetch per distinct symbol regardless of how many investments
	// (or owners) hold it.
	bySymbol := make(map[string][]*domain.Investment)
	for i := range list {
		bySymbol[list[i].Symbol] = append(bySymbol[list[i].Symbol], &list[i])
	}

	start := time.Now()
	var fetched, skipped, failed, updated, changed int

	for symbol, investments := range bySymbol {
		if !j.breaker.AllowCall() {
			j.log.Warn().Msg("Circuit breaker opened mid-run, stopping")
			break
		}

		quote, err := j.fetchWithRetry(symbol)
		if err != nil {
			if errors.Is(err, stockapi.ErrMalformedPrice) {
				skipped++
				j.log.Warn().Str("symbol", symbol).Err(err).Msg("Skipping symbol, bad price payload")
			} else {
				failed++
				j.log.Error().Str("symbol", symbol).Err(err).Msg("Failed to fetch price")
			}
			continue
		}
		fetched++

		for _, inv := range investments {
			didChange, err := j.service.ApplyQuote(inv, quote.Price)
			if err != nil {
				j.log.Error().
					Str("symbol", symbol).
					Str("investment_id", inv.ID).
					Err(err).
					Msg("Failed to apply price")
				continue
			}
			updated++
			if didChange {
				changed++
			}
		}
	}

	j.log.Info().
		Int("symbols", len(bySymbol)).
		Int("fetched", fetched).
		Int("skipped", skipped).
		Int("failed", failed).
		Int("investments_updated", updated).
		Int("prices_changed", changed).
		Dur("duration", time.Since(start)).
		Msg("Price sync completed")
	return nil
}

// probe asks the source for one known-good quote before touching the full
// working set, so a dead upstream costs one cheap call instead of N.
func (j *PriceSyncJob) probe() error {
	if j.probeSymbol == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), j.probeTimeout)
	defer cancel()
	return j.source.Probe(ctx, j.probeSymbol)
}

// fetchWithRetry fetches one symbol with bounded linear-backoff retries.
// A malformed payload is returned immediately: retrying cannot fix it and
// it says nothing about the source's availability, so the breaker is not fed.
func (j *PriceSyncJob) fetchWithRetry(symbol string) (*stockapi.Quote, error) {
	var lastErr error
	for attempt := 1; attempt <= j.retryAttempts; attempt++ {
		quote, err := j.fetch(symbol)
		if err == nil {
			j.breaker.RecordSuccess()
			return quote, nil
		}
		if errors.Is(err, stockapi.ErrMalformedPrice) {
			return nil, err
		}
		lastErr = err
		j.log.Debug().
			Str("symbol", symbol).
			Int("attempt", attempt).
			Err(err).
			Msg("Price fetch attempt failed")
		if attempt < j.retryAttempts {
			j.sleep(j.retryBaseDelay * time.Duration(attempt))
		}
	}
	j.breaker.RecordFailure()
	return nil, fmt.Errorf("all %d attempts failed: %w", j.retryAttempts, lastErr)
}

func (j *PriceSyncJob) fetch(symbol string) (*stockapi.Quote, error) {
	ctx, cancel := context.WithTimeout(context.Background(), j.fetchTimeout)
	defer cancel()
	return j.source.GetPrice(ctx, symbol)
}
