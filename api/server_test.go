package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnarQorp/qnet-scheduler/internal/auth"
	"github.com/AnarQorp/qnet-scheduler/internal/scheduler"
	"github.com/AnarQorp/qnet-scheduler/pkg/config"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

func testServer(t *testing.T) (*Server, *scheduler.Scheduler, string) {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Mode = "production"
	cfg.Balancer.Strategy = "resource-based"
	cfg.API.JWTSecret = "test-secret"
	cfg.API.JWTDuration = time.Hour
	cfg.API.JWTIssuer = "qnet-scheduler"
	cfg.API.RateLimit = 10000
	cfg.Events.BufferSize = 100
	cfg.Scheduler.PredictionInterval = time.Hour
	cfg.Scheduler.TriggerInterval = time.Hour
	cfg.Scheduler.ForecastInterval = time.Hour
	cfg.Scheduler.TrainingInterval = time.Hour
	cfg.Scheduler.AdaptiveInterval = time.Hour
	cfg.Scheduler.PatternInterval = time.Hour

	sched := scheduler.New(cfg, nil)
	srv := NewServer(cfg, nil, sched)

	svc := auth.NewService(cfg.API.JWTSecret, cfg.API.JWTDuration, cfg.API.JWTIssuer)
	token, err := svc.GenerateToken("test-operator", "admin")
	require.NoError(t, err)

	return srv, sched, token
}

func doRequest(srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthReflectsSchedulerState(t *testing.T) {
	srv, sched, _ := testServer(t)

	w := doRequest(srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	require.NoError(t, sched.Start())
	defer sched.Stop()

	w = doRequest(srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(srv, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOperatorRoutesRequireToken(t *testing.T) {
	srv, _, token := testServer(t)

	w := doRequest(srv, http.MethodGet, "/api/v1/distribution", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/v1/distribution", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/v1/distribution", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReportAndReadNodeLoad(t *testing.T) {
	srv, _, token := testServer(t)

	cpu := 42.0
	w := doRequest(srv, http.MethodPost, "/api/v1/nodes/qnet-node-1/load", token, map[string]interface{}{
		"cpu_utilization": cpu,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/v1/nodes/qnet-node-1/load", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var load map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &load))
	assert.Equal(t, cpu, load["cpu_utilization"])
}

func TestPlacementSelectsNode(t *testing.T) {
	srv, _, token := testServer(t)

	w := doRequest(srv, http.MethodPost, "/api/v1/nodes/qnet-node-1/load", token, map[string]interface{}{
		"cpu_utilization": 10.0,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doRequest(srv, http.MethodPost, "/api/v1/placements", token, map[string]interface{}{
		"candidates": []string{"qnet-node-1"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var decision map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.Equal(t, "qnet-node-1", decision["selected_node"])
}

func TestPlacementRejectsEmptyCandidates(t *testing.T) {
	srv, _, token := testServer(t)

	w := doRequest(srv, http.MethodPost, "/api/v1/placements", token, map[string]interface{}{
		"candidates": []string{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddPolicyValidation(t *testing.T) {
	srv, _, token := testServer(t)

	policy := models.ScalingPolicy{
		ID:      "policy-1",
		Name:    "cpu pressure",
		Enabled: true,
		Triggers: []models.ScalingTrigger{
			{
				Metric:     models.MetricCPUUtilization,
				Comparison: models.CompareGreater,
				Threshold:  80,
				Duration:   time.Minute,
				Action:     models.ActionAddNode,
			},
		},
	}

	w := doRequest(srv, http.MethodPost, "/api/v1/policies", token, policy)
	require.Equal(t, http.StatusCreated, w.Code)

	// Same id again conflicts.
	w = doRequest(srv, http.MethodPost, "/api/v1/policies", token, policy)
	assert.Equal(t, http.StatusConflict, w.Code)

	// No triggers is invalid.
	w = doRequest(srv, http.MethodPost, "/api/v1/policies", token, models.ScalingPolicy{
		ID:   "policy-2",
		Name: "empty",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileNotFound(t *testing.T) {
	srv, _, token := testServer(t)

	w := doRequest(srv, http.MethodGet, "/api/v1/profiles/unknown-node", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScalingStatusShape(t *testing.T) {
	srv, _, token := testServer(t)

	w := doRequest(srv, http.MethodGet, "/api/v1/scaling/status", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Contains(t, status, "policies")
	assert.Contains(t, status, "pools")
}

func TestHistoryRequiresDatabaseSink(t *testing.T) {
	srv, _, token := testServer(t)

	w := doRequest(srv, http.MethodGet, "/api/v1/history", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "database sink")

	w = doRequest(srv, http.MethodGet, "/api/v1/history/summary", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHistoryValidatesParameters(t *testing.T) {
	srv, _, token := testServer(t)

	w := doRequest(srv, http.MethodGet, "/api/v1/history?limit=0", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/v1/history?limit=501", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/v1/history?node=bad+node%21", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/v1/history/summary?since_hours=-1", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthOmitsDatabaseWithoutSink(t *testing.T) {
	srv, sched, _ := testServer(t)
	require.NoError(t, sched.Start())
	defer sched.Stop()

	w := doRequest(srv, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.NotContains(t, health, "database")

	checks, ok := health["checks"].(map[string]interface{})
	require.True(t, ok)
	assert.NotContains(t, checks, "database")
}
