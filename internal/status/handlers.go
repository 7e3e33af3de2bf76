package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nerrad567/ventoagent/internal/monitor"
)

// healthCheckTimeout bounds each dependency probe.
const healthCheckTimeout = 2 * time.Second

type componentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Device     string                     `json:"device"`
	Version    string                     `json:"version,omitempty"`
	RunID      string                     `json:"run_id"`
	UptimeSecs int64                      `json:"uptime_seconds"`
	Components map[string]componentHealth `json:"components"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{
		Status:     "ok",
		Device:     s.deps.Registry.DevicePayload().Name,
		Version:    s.deps.Version,
		RunID:      s.runID,
		UptimeSecs: int64(time.Since(s.started).Seconds()),
		Components: map[string]componentHealth{
			"mqtt": probe(ctx, s.deps.MQTT),
		},
	}
	if s.deps.InfluxDB != nil {
		resp.Components["influxdb"] = probe(ctx, s.deps.InfluxDB)
	}

	status := http.StatusOK
	// InfluxDB is a best-effort mirror; only the broker decides readiness.
	if resp.Components["mqtt"].Status != "ok" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func probe(ctx context.Context, hc HealthChecker) componentHealth {
	if err := hc.HealthCheck(ctx); err != nil {
		return componentHealth{Status: "error", Error: err.Error()}
	}
	return componentHealth{Status: "ok"}
}

func (s *Server) handleDevice(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Registry.DevicePayload())
}

func (s *Server) handleMonitors(w http.ResponseWriter, _ *http.Request) {
	stats := []monitor.Stat{}
	if s.deps.Monitors != nil {
		stats = s.deps.Monitors.Stats()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"monitors": stats,
		"count":    len(stats),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort write; the client may have gone away
	json.NewEncoder(w).Encode(v)
}
