package schedule

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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/handler"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	scheduleService "github.com/jwalitptl/telehealth-api/internal/service/schedule"
	"github.com/jwalitptl/telehealth-api/pkg/httputil"
)

type fakeScheduleRepo struct {
	created   []*model.Schedule
	deleteErr error
}

func (f *fakeScheduleRepo) CreateBatch(_ context.Context, schedules []*model.Schedule) ([]*model.Schedule, error) {
	for _, s := range schedules {
		s.ID = uuid.New()
	}
	f.created = append(f.created, schedules...)
	return schedules, nil
}

func (f *fakeScheduleRepo) Get(_ context.Context, _ uuid.UUID) (*model.Schedule, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeScheduleRepo) List(_ context.Context, _ *model.ScheduleFilters) ([]*model.Schedule, error) {
	return f.created, nil
}

func (f *fakeScheduleRepo) ListAvailableForDoctor(_ context.Context, _ uuid.UUID, _ time.Time) ([]*model.Schedule, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) Delete(_ context.Context, _ uuid.UUID) error {
	return f.deleteErr
}

func setupRouter(t *testing.T, repo *fakeScheduleRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, handler.RegisterValidators())

	h := NewHandler(scheduleService.NewService(repo, 30))
	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)
	h.RegisterAdminRoutes(api)
	return r
}

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateSchedules(t *testing.T) {
	repo := &fakeScheduleRepo{}
	r := setupRouter(t, repo)

	w := postJSON(r, "/api/v1/schedules", gin.H{
		"start_date": "2026-09-01",
		"end_date":   "2026-09-01",
		"start_time": "09:00",
		"end_time":   "10:00",
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, repo.created, 2)
}

func TestGenerateRejectsBadTimeFormat(t *testing.T) {
	r := setupRouter(t, &fakeScheduleRepo{})

	w := postJSON(r, "/api/v1/schedules", gin.H{
		"start_date": "2026-09-01",
		"end_date":   "2026-09-01",
		"start_time": "9am",
		"end_time":   "10:00",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotEmpty(t, resp.ErrorMessages)
	assert.Equal(t, "starttime", resp.ErrorMessages[0].Path)
}

func TestGenerateRejectsMissingFields(t *testing.T) {
	r := setupRouter(t, &fakeScheduleRepo{})

	w := postJSON(r, "/api/v1/schedules", gin.H{"start_date": "2026-09-01"})

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSchedules(t *testing.T) {
	repo := &fakeScheduleRepo{}
	r := setupRouter(t, repo)

	postJSON(r, "/api/v1/schedules", gin.H{
		"start_date": "2026-09-01",
		"end_date":   "2026-09-01",
		"start_time": "09:00",
		"end_time":   "10:00",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedules", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestDeleteClaimedScheduleReturnsConflict(t *testing.T) {
	repo := &fakeScheduleRepo{deleteErr: repository.ErrScheduleInUse}
	r := setupRouter(t, repo)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/schedules/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
}
