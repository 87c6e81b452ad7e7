package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	// probes run concurrently
	mock.MatchExpectationsInOrder(false)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	hc := NewHealthChecker(db, rdb)

	t.Run("healthy", func(t *testing.T) {
		mock.ExpectPing()
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM email_queue`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

		rec := httptest.NewRecorder()
		hc.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var got HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "healthy", got.Status)
		assert.Equal(t, statusUp, got.Checks["database"].Status)
		assert.Equal(t, statusUp, got.Checks["redis"].Status)
		assert.Equal(t, "12 pending", got.Checks["queue"].Message)
	})

	t.Run("database down fails readiness", func(t *testing.T) {
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM email_queue`).WillReturnError(errors.New("connection refused"))

		rec := httptest.NewRecorder()
		hc.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]ComponentCheck
		want   string
	}{
		{"all up", map[string]ComponentCheck{"database": {Status: statusUp}, "redis": {Status: statusUp}}, "healthy"},
		{"redis not configured", map[string]ComponentCheck{"database": {Status: statusUp}, "redis": {Status: statusDown, Message: notConfiguredMsg}}, "healthy"},
		{"redis down", map[string]ComponentCheck{"database": {Status: statusUp}, "redis": {Status: statusDown, Message: "ping failed"}}, "degraded"},
		{"queue backlog", map[string]ComponentCheck{"database": {Status: statusUp}, "queue": {Status: statusDegraded}}, "degraded"},
		{"database down", map[string]ComponentCheck{"database": {Status: statusDown, Message: "ping failed"}}, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, overallStatus(tt.checks))
		})
	}
}
