package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"staff-status-backend/config"
	"staff-status-backend/internal/db"
	"staff-status-backend/internal/manager"
	"staff-status-backend/internal/model"
	"staff-status-backend/internal/store"
	statussync "staff-status-backend/internal/sync"
)

// 2025-06-10 is a Tuesday.
var testNow = time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

type emptySource struct{}

func (emptySource) AttendanceForToday(user model.User, now time.Time) (*model.AttendanceRecord, error) {
	return nil, nil
}

func (emptySource) CalendarForToday(user model.User, now time.Time) ([]model.CalendarEvent, error) {
	return nil, nil
}

func setupRouter(t *testing.T, clock manager.Clock) (*gin.Engine, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	s := store.NewGormStore(gormDB)
	if clock == nil {
		clock = func() time.Time { return testNow }
	}
	m := manager.New(s, clock)

	cfg := &config.SyncConfig{Enabled: true, Interval: time.Hour}
	sy := statussync.New(cfg, s, m, emptySource{}, clock)

	user := model.User{ID: "u1", Name: "Alice Zhang", Department: "Engineering", WorkStart: "09:00", WorkEnd: "18:00"}
	require.NoError(t, s.CreateUser(context.Background(), &user))

	serverCfg := config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 1}
	router := NewRouter(s, m, sy, serverCfg, &webpush.Options{VAPIDPublicKey: "test-public-key"})
	return router, s
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetUsers(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(router, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var users []model.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "Alice Zhang", users[0].Name)
}

func TestPutUserStatus(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(router, http.MethodPut, "/api/users/u1/status", map[string]any{
		"status": "wfh",
		"detail": "Home office",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var status model.UserStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, model.StatusWFH, status.CurrentStatus)
	assert.Equal(t, "Home office", status.StatusDetail)
}

func TestPutUserStatus_Errors(t *testing.T) {
	router, _ := setupRouter(t, nil)

	// Missing body.
	w := doJSON(router, http.MethodPut, "/api/users/u1/status", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown user.
	w = doJSON(router, http.MethodPut, "/api/users/ghost/status", map[string]any{"status": "wfh"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPutUserStatus_InvalidTransition(t *testing.T) {
	lateNight := func() time.Time { return time.Date(2025, 6, 10, 22, 0, 0, 0, time.UTC) }
	router, _ := setupRouter(t, lateNight)

	w := doJSON(router, http.MethodPut, "/api/users/u1/status", map[string]any{"status": "on_duty"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGetUserStatus(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(router, http.MethodGet, "/api/users/u1/status", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "no status exists before the first resolution")

	require.Equal(t, http.StatusOK, doJSON(router, http.MethodPost, "/api/users/u1/status/refresh", nil).Code)

	w = doJSON(router, http.MethodGet, "/api/users/u1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status model.UserStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, model.StatusOnDuty, status.CurrentStatus)
}

func TestGetStatuses(t *testing.T) {
	router, _ := setupRouter(t, nil)

	require.Equal(t, http.StatusOK, doJSON(router, http.MethodPut, "/api/users/u1/status", map[string]any{
		"status": "out", "detail": "Client visit",
	}).Code)

	w := doJSON(router, http.MethodGet, "/api/statuses?statuses=out", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var statuses []model.UserStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Empty(t, statuses[0].StatusDetail, "details are stripped unless requested")

	w = doJSON(router, http.MethodGet, "/api/statuses?user_ids=u1&include_details=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, "Client visit", statuses[0].StatusDetail)

	// Unknown status filter is rejected.
	w = doJSON(router, http.MethodGet, "/api/statuses?statuses=sleeping", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteTimeSlot(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(router, http.MethodPut, "/api/users/u1/status", map[string]any{"status": "out"})
	require.Equal(t, http.StatusOK, w.Code)
	var status model.UserStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Len(t, status.TimeSlots, 1)

	w = doJSON(router, http.MethodDelete, fmt.Sprintf("/api/users/u1/slots/%s", status.TimeSlots[0].SlotID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, model.StatusOnDuty, status.CurrentStatus)

	w = doJSON(router, http.MethodDelete, "/api/users/u1/slots/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStatusHistory(t *testing.T) {
	router, _ := setupRouter(t, nil)

	require.Equal(t, http.StatusOK, doJSON(router, http.MethodPut, "/api/users/u1/status", map[string]any{"status": "wfh"}).Code)

	w := doJSON(router, http.MethodGet, "/api/users/u1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []model.StatusEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, model.StatusWFH, entries[0].Status)

	w = doJSON(router, http.MethodGet, "/api/users/u1/history?days=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostSync(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(router, http.MethodPost, "/api/sync", map[string]any{"force_refresh": true})
	require.Equal(t, http.StatusOK, w.Code)

	var result statussync.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.StatusesRefreshed)
	assert.Empty(t, result.Errors)
}

func TestGetConsistency(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(router, http.MethodGet, "/api/consistency", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report statussync.ConsistencyReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.False(t, report.Consistent, "u1 has no status record yet")

	require.Equal(t, http.StatusOK, doJSON(router, http.MethodPost, "/api/users/u1/status/refresh", nil).Code)

	w = doJSON(router, http.MethodGet, "/api/consistency", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.True(t, report.Consistent)
}

func TestSubscriptionLifecycle(t *testing.T) {
	router, _ := setupRouter(t, nil)

	// Missing required fields.
	w := doJSON(router, http.MethodPut, "/api/subscriptions", map[string]any{"endpoint": "https://push.example.com/sub"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPut, "/api/subscriptions", map[string]any{
		"endpoint":         "https://push.example.com/sub",
		"p256dh":           "p256dh-key",
		"auth":             "auth-secret",
		"subscribed_users": []string{"u1"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/subscriptions?endpoint=https%3A%2F%2Fpush.example.com%2Fsub", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Endpoint        string   `json:"endpoint"`
		SubscribedUsers []string `json:"subscribed_users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{"u1"}, got.SubscribedUsers)

	w = doJSON(router, http.MethodDelete, "/api/subscriptions?endpoint=https%3A%2F%2Fpush.example.com%2Fsub", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodGet, "/api/subscriptions?endpoint=https%3A%2F%2Fpush.example.com%2Fsub", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(router, http.MethodGet, "/api/vapid_public_key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"test-public-key"}`, w.Body.String())
}
