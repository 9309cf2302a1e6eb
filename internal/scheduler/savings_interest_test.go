package scheduler

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyenduc/fintrack/internal/database"
	"github.com/nguyenduc/fintrack/internal/events"
	"github.com/nguyenduc/fintrack/internal/locking"
	"github.com/nguyenduc/fintrack/internal/modules/investment"
)

func TestSavingsInterestJobAccruesDueInterest(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	notifier := events.NewManager(nil, zerolog.Nop())
	repo := investment.NewRepository(db.Conn(), zerolog.Nop())
	service := investment.NewService(repo, notifier, zerolog.Nop())

	rate := 12.0
	contribution := 10000.0
	start := time.Now().AddDate(0, -2, 0)
	due, err := service.Create("alice", investment.CreateInput{
		Name:                "Old deposit",
		Kind:                "savings",
		InterestRate:        &rate,
		StartDate:           &start,
		InitialContribution: &contribution,
	})
	require.NoError(t, err)

	fresh, err := service.Create("alice", investment.CreateInput{
		Name:                "New deposit",
		Kind:                "savings",
		InterestRate:        &rate,
		InitialContribution: &contribution,
	})
	require.NoError(t, err)

	job := NewSavingsInterestJob(locking.NewManager(), service, zerolog.Nop())
	require.NoError(t, job.Run())

	accrued, err := service.Get("alice", due.ID)
	require.NoError(t, err)
	require.Len(t, accrued.Transactions, 2)
	assert.InDelta(t, 10100, accrued.CurrentValue, 1e-9)

	untouched, err := service.Get("alice", fresh.ID)
	require.NoError(t, err)
	assert.Len(t, untouched.Transactions, 1)
	assert.InDelta(t, 10000, untouched.CurrentValue, 1e-9)
}
