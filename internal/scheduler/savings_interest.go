package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nguyenduc/fintrack/internal/locking"
	"github.com/nguyenduc/fintrack/internal/modules/investment"
)

// SavingsInterestJob accrues the interest due on active savings investments.
// Runs daily; the service decides per investment whether an accrual point
// has been reached.
type SavingsInterestJob struct {
	log         zerolog.Logger
	lockManager *locking.Manager
	service     *investment.Service
	now         func() time.Time
}

// NewSavingsInterestJob creates a new savings interest job
func NewSavingsInterestJob(lockManager *locking.Manager, service *investment.Service, log zerolog.Logger) *SavingsInterestJob {
	return &SavingsInterestJob{
		log:         log.With().Str("job", "savings_interest").Logger(),
		lockManager: lockManager,
		service:     service,
		now:         time.Now,
	}
}

// Name returns the job name
func (j *SavingsInterestJob) Name() string {
	return "savings_interest"
}

// Run accrues interest for every savings investment that is due
func (j *SavingsInterestJob) Run() error {
	if err := j.lockManager.Acquire("savings_interest"); err != nil {
		j.log.Warn().Err(err).Msg("Interest accrual already running, skipping")
		return nil
	}
	defer j.lockManager.Release("savings_interest")

	list, err := j.service.ListActiveSavings()
	if err != nil {
		return fmt.Errorf("failed to load savings investments: %w", err)
	}

	now := j.now()
	var accrued, failed int
	for i := range list {
		tx, err := j.service.AccrueInterest(&list[i], now)
		if err != nil {
			failed++
			j.log.Error().
				Str("investment_id", list[i].ID).
				Err(err).
				Msg("Interest accrual failed")
			continue
		}
		if tx != nil {
			accrued++
			j.log.Info().
				Str("investment_id", list[i].ID).
				Float64("amount", tx.Amount).
				Msg("Interest accrued")
		}
	}

	j.log.Info().
		Int("candidates", len(list)).
		Int("accrued", accrued).
		Int("failed", failed).
		Msg("Interest accrual completed")
	return nil
}
