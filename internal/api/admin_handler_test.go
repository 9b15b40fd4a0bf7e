package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holds-service/internal/clock"
	"holds-service/internal/models"
	"holds-service/internal/sweeper"
)

type stubReservationRepo struct{}

func (stubReservationRepo) CreateReservation(context.Context, *models.Reservation) error {
	return nil
}

func (stubReservationRepo) GetReservation(context.Context, uuid.UUID) (*models.Reservation, error) {
	return nil, nil
}

func (stubReservationRepo) FindActiveReservation(context.Context, string, string) (*models.Reservation, error) {
	return nil, nil
}

func (stubReservationRepo) GetUserReservations(context.Context, string) ([]models.Reservation, error) {
	return nil, nil
}

func (stubReservationRepo) GetAllReservations(context.Context) ([]models.Reservation, error) {
	return nil, nil
}

func (stubReservationRepo) CancelReservation(context.Context, uuid.UUID) (bool, error) {
	return false, nil
}

func (stubReservationRepo) ExpireReservation(context.Context, uuid.UUID) (bool, error) {
	return false, nil
}

func (stubReservationRepo) GetExpiredActive(context.Context, time.Time, int) ([]models.Reservation, error) {
	return []models.Reservation{}, nil
}

type stubOutbox struct{}

func (stubOutbox) InsertLifecycleEvent(context.Context, *sqlx.Tx, *models.LifecycleEvent) error {
	return nil
}

func newJobRouter(t *testing.T) (*gin.Engine, *sweeper.Job) {
	t.Helper()

	swp, err := sweeper.NewSweeper(stubReservationRepo{}, stubOutbox{},
		clock.NewFixed(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)), 500)
	require.NoError(t, err)
	job := sweeper.NewJob(swp)
	t.Cleanup(func() { job.Stop() })

	router := gin.New()
	handler := NewAdminHandler(job, nil, time.Hour)
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router, job
}

func TestStartExpirationJob_EmptyBodyUsesDefaultInterval(t *testing.T) {
	router, job := newJobRouter(t)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/expiration/job/start", nil)
	router.ServeHTTP(recorder, req)

	require.Equal(t, 200, recorder.Code, recorder.Body.String())
	require.True(t, job.IsRunning())

	var status models.JobStatus
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))
	assert.True(t, status.Running)
	assert.Equal(t, 60, status.IntervalMinutes)
}

func TestStartExpirationJob_ExplicitInterval(t *testing.T) {
	router, job := newJobRouter(t)

	body := bytes.NewBufferString(`{"interval_minutes": 15}`)
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/expiration/job/start", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, req)

	require.Equal(t, 200, recorder.Code, recorder.Body.String())
	assert.Equal(t, 15, job.Status().IntervalMinutes)
}

func TestStartExpirationJob_SecondStartConflicts(t *testing.T) {
	router, _ := newJobRouter(t)

	for _, want := range []int{200, 409} {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/expiration/job/start", nil)
		router.ServeHTTP(recorder, req)
		assert.Equal(t, want, recorder.Code, recorder.Body.String())
	}
}

func TestStartExpirationJob_MalformedBodyStillRejected(t *testing.T) {
	router, job := newJobRouter(t)

	body := bytes.NewBufferString(`{"interval_minutes": "soon"}`)
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/expiration/job/start", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, 400, recorder.Code)
	assert.False(t, job.IsRunning())
}
