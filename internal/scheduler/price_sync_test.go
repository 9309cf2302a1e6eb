package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyenduc/fintrack/internal/breaker"
	"github.com/nguyenduc/fintrack/internal/clients/stockapi"
	"github.com/nguyenduc/fintrack/internal/database"
	"github.com/nguyenduc/fintrack/internal/events"
	"github.com/nguyenduc/fintrack/internal/locking"
	"github.com/nguyenduc/fintrack/internal/modules/investment"
)

// fakeSource scripts quote responses per symbol and counts calls
type fakeSource struct {
	mu       sync.Mutex
	calls    map[string]int
	quotes   map[string]float64
	errs     map[string]error
	probeErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls:  make(map[string]int),
		quotes: make(map[string]float64),
		errs:   make(map[string]error),
	}
}

func (f *fakeSource) GetPrice(ctx context.Context, symbol string) (*stockapi.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return &stockapi.Quote{Symbol: symbol, Price: f.quotes[symbol]}, nil
}

func (f *fakeSource) Probe(ctx context.Context, symbol string) error {
	return f.probeErr
}

func (f *fakeSource) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

type syncFixture struct {
	service *investment.Service
	source  *fakeSource
	breaker *breaker.Breaker
	locks   *locking.Manager
	job     *PriceSyncJob
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	notifier := events.NewManager(nil, zerolog.Nop())
	repo := investment.NewRepository(db.Conn(), zerolog.Nop())
	service := investment.NewService(repo, notifier, zerolog.Nop())

	f := &syncFixture{
		service: service,
		source:  newFakeSource(),
		breaker: breaker.New(breaker.WithThreshold(5)),
		locks:   locking.NewManager(),
	}
	f.job = NewPriceSyncJob(PriceSyncConfig{
		Log:            zerolog.Nop(),
		LockManager:    f.locks,
		Service:        service,
		Source:         f.source,
		Breaker:        f.breaker,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
	})
	f.job.sleep = func(time.Duration) {}
	return f
}

func (f *syncFixture) holding(t *testing.T, userID, symbol string) {
	t.Helper()
	_, err := f.service.Create(userID, investment.CreateInput{
		Name:   symbol + " holding",
		Kind:   "equity",
		Symbol: symbol,
	})
	require.NoError(t, err)
}

func TestPriceSyncFetchesOncePerSymbol(t *testing.T) {
	f := newSyncFixture(t)

	// Two owners hold the same symbol; a third holds another
	f.holding(t, "alice", "VNM")
	f.holding(t, "bob", "VNM")
	f.holding(t, "alice", "HPG")
	f.source.quotes["VNM"] = 65400
	f.source.quotes["HPG"] = 27000

	require.NoError(t, f.job.Run())

	assert.Equal(t, 1, f.source.callCount("VNM"))
	assert.Equal(t, 1, f.source.callCount("HPG"))

	for _, owner := range []string{"alice", "bob"} {
		inv, err := f.service.GetBySymbol(owner, "VNM")
		require.NoError(t, err)
		assert.InDelta(t, 65400, inv.CurrentPrice, 1e-9)
	}
	hpg, err := f.service.GetBySymbol("alice", "HPG")
	require.NoError(t, err)
	assert.InDelta(t, 27000, hpg.CurrentPrice, 1e-9)
}

func TestPriceSyncSkipsMalformedWithoutRetry(t *testing.T) {
	f := newSyncFixture(t)
	f.holding(t, "alice", "VNM")
	f.source.errs["VNM"] = fmt.Errorf("%w for symbol VNM", stockapi.ErrMalformedPrice)

	require.NoError(t, f.job.Run())

	// No retries spent, breaker untouched, price unchanged
	assert.Equal(t, 1, f.source.callCount("VNM"))
	assert.Zero(t, f.breaker.Failures())

	inv, err := f.service.GetBySymbol("alice", "VNM")
	require.NoError(t, err)
	assert.Zero(t, inv.CurrentPrice)
}

func TestPriceSyncRetriesTransportErrors(t *testing.T) {
	f := newSyncFixture(t)
	f.holding(t, "alice", "VNM")
	f.source.errs["VNM"] = errors.New("connection refused")

	require.NoError(t, f.job.Run())

	assert.Equal(t, 3, f.source.callCount("VNM"), "exhausts the bounded retries")
	assert.Equal(t, 1, f.breaker.Failures(), "one failure per exhausted symbol")
}

func TestPriceSyncSkipsWhenBreakerOpen(t *testing.T) {
	f := newSyncFixture(t)
	f.holding(t, "alice", "VNM")
	f.source.quotes["VNM"] = 100

	f.breaker = breaker.New(breaker.WithThreshold(1))
	f.job.breaker = f.breaker
	f.breaker.RecordFailure()

	require.NoError(t, f.job.Run())
	assert.Zero(t, f.source.callCount("VNM"))
}

func TestPriceSyncSkipsWhenAlreadyRunning(t *testing.T) {
	f := newSyncFixture(t)
	f.holding(t, "alice", "VNM")
	f.source.quotes["VNM"] = 100

	require.NoError(t, f.locks.Acquire("price_sync"))
	require.NoError(t, f.job.Run())
	assert.Zero(t, f.source.callCount("VNM"))

	f.locks.Release("price_sync")
	require.NoError(t, f.job.Run())
	assert.Equal(t, 1, f.source.callCount("VNM"))
}

func TestPriceSyncProbeFailureSkipsTick(t *testing.T) {
	f := newSyncFixture(t)
	f.holding(t, "alice", "VNM")
	f.source.quotes["VNM"] = 100
	f.job.probeSymbol = "VNM"
	f.source.probeErr = errors.New("upstream down")

	require.NoError(t, f.job.Run())

	assert.Zero(t, f.source.callCount("VNM"), "working set untouched after failed probe")
	assert.Equal(t, 1, f.breaker.Failures())
}

func TestPriceSyncIgnoresSoldAndUnpriceable(t *testing.T) {
	f := newSyncFixture(t)

	// A savings investment has no symbol and never syncs
	_, err := f.service.Create("alice", investment.CreateInput{Name: "Deposit", Kind: "savings"})
	require.NoError(t, err)

	require.NoError(t, f.job.Run())
	assert.Empty(t, f.source.calls)
}
