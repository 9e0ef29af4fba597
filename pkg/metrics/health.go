package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// ComponentStatus is one registered component's last reported state.
type ComponentStatus struct {
	Healthy bool      `json:"healthy"`
	Message string    `json:"message,omitempty"`
	Updated time.Time `json:"updated"`
}

// HealthReport is the JSON body served by the readiness endpoint.
type HealthReport struct {
	Status     string                     `json:"status"` // "ready" or "not_ready"
	Timestamp  time.Time                  `json:"timestamp"`
	Uptime     string                     `json:"uptime"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
}

// healthState tracks the components mgsd wires at startup: the durable
// store, the cache tier (when configured), the drainer, and the API
// listeners. Readiness is derived from whatever was registered; the cache
// is optional, so its absence alone never makes the process not-ready.
type healthState struct {
	mu         sync.RWMutex
	components map[string]ComponentStatus
	startTime  time.Time
	version    string
}

var health = &healthState{
	components: make(map[string]ComponentStatus),
	startTime:  time.Now(),
}

// SetVersion records the build version reported in readiness responses.
func SetVersion(version string) {
	health.mu.Lock()
	defer health.mu.Unlock()
	health.version = version
}

// RegisterComponent records (or replaces) a component's health state.
// Components registered unhealthy make the process not-ready until a later
// UpdateComponent flips them.
func RegisterComponent(name string, healthy bool, message string) {
	health.mu.Lock()
	defer health.mu.Unlock()
	health.components[name] = ComponentStatus{
		Healthy: healthy,
		Message: message,
		Updated: time.Now(),
	}
}

// UpdateComponent updates a previously registered component.
func UpdateComponent(name string, healthy bool, message string) {
	RegisterComponent(name, healthy, message)
}

// Readiness reports whether every registered component is healthy.
func Readiness() HealthReport {
	health.mu.RLock()
	defer health.mu.RUnlock()

	status := "ready"
	components := make(map[string]ComponentStatus, len(health.components))
	for name, comp := range health.components {
		components[name] = comp
		if !comp.Healthy {
			status = "not_ready"
		}
	}
	if len(components) == 0 {
		status = "not_ready"
	}

	return HealthReport{
		Status:     status,
		Timestamp:  time.Now(),
		Uptime:     time.Since(health.startTime).String(),
		Version:    health.version,
		Components: components,
	}
}

// ReadyHandler serves readiness: 200 when every registered component is
// healthy, 503 otherwise.
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := Readiness()

		w.Header().Set("Content-Type", "application/json")
		if report.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}

// LivenessHandler serves liveness: 200 whenever the process is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
			"uptime": time.Since(health.startTime).String(),
		})
	}
}
