package scheduler

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyenduc/fintrack/internal/database"
	"github.com/nguyenduc/fintrack/internal/locking"
)

func TestHealthCheckJob(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	locks := locking.NewManager()
	var buf bytes.Buffer
	job := NewHealthCheckJob(db, locks, zerolog.New(&buf))

	require.NoError(t, job.Run())

	// The checkpoint pragma scan must parse, not fall into the warn path
	assert.NotContains(t, buf.String(), "Failed to check WAL checkpoint")

	// Lock released after the run
	assert.NoError(t, locks.Acquire("health_check"))
}

func TestHealthCheckSkipsWhenAlreadyRunning(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	locks := locking.NewManager()
	require.NoError(t, locks.Acquire("health_check"))

	job := NewHealthCheckJob(db, locks, zerolog.Nop())
	assert.NoError(t, job.Run(), "a held lock skips the run without failing")
}
