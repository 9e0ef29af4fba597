package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetHealth() {
	health = &healthState{
		components: make(map[string]ComponentStatus),
		startTime:  time.Now(),
	}
}

func TestReadinessAllComponentsHealthy(t *testing.T) {
	resetHealth()
	SetVersion("1.2.3")
	RegisterComponent("durablestore", true, "")
	RegisterComponent("cache", true, "")
	RegisterComponent("api", true, "")

	report := Readiness()
	assert.Equal(t, "ready", report.Status)
	assert.Equal(t, "1.2.3", report.Version)
	assert.Len(t, report.Components, 3)
}

func TestReadinessUnhealthyComponentBlocksReady(t *testing.T) {
	resetHealth()
	RegisterComponent("durablestore", true, "")
	RegisterComponent("cache", false, "redis unreachable")

	report := Readiness()
	assert.Equal(t, "not_ready", report.Status)
	assert.Equal(t, "redis unreachable", report.Components["cache"].Message)
}

func TestReadinessNothingRegisteredIsNotReady(t *testing.T) {
	resetHealth()
	assert.Equal(t, "not_ready", Readiness().Status)
}

func TestUpdateComponentFlipsReadiness(t *testing.T) {
	resetHealth()
	RegisterComponent("durablestore", false, "connecting")
	assert.Equal(t, "not_ready", Readiness().Status)

	UpdateComponent("durablestore", true, "")
	assert.Equal(t, "ready", Readiness().Status)
}

func TestReadyHandlerStatusCodes(t *testing.T) {
	resetHealth()
	RegisterComponent("durablestore", true, "")

	w := httptest.NewRecorder()
	ReadyHandler()(w, httptest.NewRequest("GET", "/readyz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var report HealthReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.Equal(t, "ready", report.Status)

	UpdateComponent("durablestore", false, "gone")
	w = httptest.NewRecorder()
	ReadyHandler()(w, httptest.NewRequest("GET", "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLivenessHandlerAlwaysOK(t *testing.T) {
	resetHealth()

	w := httptest.NewRecorder()
	LivenessHandler()(w, httptest.NewRequest("GET", "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "alive", body["status"])
	assert.NotEmpty(t, body["uptime"])
}
