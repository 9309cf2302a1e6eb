package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyenduc/fintrack/internal/database"
	"github.com/nguyenduc/fintrack/internal/events"
	"github.com/nguyenduc/fintrack/internal/modules/investment"
	"github.com/nguyenduc/fintrack/internal/scheduler"
)

// stubJob counts manual runs and can be scripted to fail
type stubJob struct {
	runs int
	err  error
}

func (j *stubJob) Run() error   { j.runs++; return j.err }
func (j *stubJob) Name() string { return "stub_job" }

func newTestServer(t *testing.T, jobs ...scheduler.Job) *Server {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	hub := NewHub(zerolog.Nop())
	repo := investment.NewRepository(db.Conn(), zerolog.Nop())
	service := investment.NewService(repo, events.NewManager(hub, zerolog.Nop()), zerolog.Nop())

	return New(Config{
		Port:              0,
		Log:               zerolog.Nop(),
		DB:                db,
		InvestmentHandler: investment.NewHandler(service, zerolog.Nop()),
		Hub:               hub,
		Scheduler:         scheduler.New(zerolog.Nop()),
		Jobs:              jobs,
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestSystemStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutines")
}

func TestManualJobTrigger(t *testing.T) {
	job := &stubJob{}
	srv := newTestServer(t, job)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/system/jobs/stub_job/run", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, job.runs)

	// Unknown job name
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/system/jobs/no_such_job/run", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A failing run surfaces as an internal error
	job.err = errors.New("boom")
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/system/jobs/stub_job/run", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 2, job.runs)
}
