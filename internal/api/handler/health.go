package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/service"
)

const readyTimeout = 5 * time.Second

// FormStatter reports how many forms exist in each state.
type FormStatter interface {
	Stats(ctx context.Context) (*domain.FormStats, error)
}

// EventStatter reports activity log counters.
type EventStatter interface {
	Stats() service.EventStats
}

// HealthHandler serves the probes and process stats.
type HealthHandler struct {
	forms    FormStatter
	events   EventStatter
	started  time.Time
	draining atomic.Bool
}

// NewHealthHandler creates a health handler. events may be nil.
func NewHealthHandler(forms FormStatter, events EventStatter) *HealthHandler {
	return &HealthHandler{
		forms:   forms,
		events:  events,
		started: time.Now(),
	}
}

// Drain makes /ready fail from now on so a load balancer stops routing new
// forms here while open sessions finish.
func (h *HealthHandler) Drain() {
	h.draining.Store(true)
}

// HealthResponse is the JSON body of both probes.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Forms     *domain.FormStats `json:"forms,omitempty"`
}

func probe(status string, forms *domain.FormStats) HealthResponse {
	return HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Forms:     forms,
	}
}

// Live handles GET /health
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, probe("ok", nil))
}

// Ready handles GET /ready. It fails while draining or when the form
// repository cannot be read.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.draining.Load() {
		writeJSON(w, http.StatusServiceUnavailable, probe("draining", nil))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	forms, err := h.forms.Stats(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, probe("error", nil))
		return
	}
	writeJSON(w, http.StatusOK, probe("ok", forms))
}

// SystemStats is the body of GET /api/v1/stats.
type SystemStats struct {
	Uptime        int64               `json:"uptime_seconds"`
	UptimeHuman   string              `json:"uptime_human"`
	MemAllocMB    uint64              `json:"mem_alloc_mb"`
	MemSysMB      uint64              `json:"mem_sys_mb"`
	NumGoroutines int                 `json:"num_goroutines"`
	NumCPU        int                 `json:"num_cpu"`
	Draining      bool                `json:"draining"`
	Forms         *domain.FormStats   `json:"forms,omitempty"`
	Events        *service.EventStats `json:"events,omitempty"`
}

// Stats handles GET /api/v1/stats
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := time.Since(h.started)

	stats := SystemStats{
		Uptime:        int64(uptime.Seconds()),
		UptimeHuman:   formatUptime(uptime),
		MemAllocMB:    m.Alloc >> 20,
		MemSysMB:      m.Sys >> 20,
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		Draining:      h.draining.Load(),
	}

	// Best effort; /ready is where a broken repository shows up.
	if forms, err := h.forms.Stats(r.Context()); err == nil {
		stats.Forms = forms
	}
	if h.events != nil {
		events := h.events.Stats()
		stats.Events = &events
	}

	writeJSON(w, http.StatusOK, stats)
}

func formatUptime(d time.Duration) string {
	mins := int(d / time.Minute)
	days, hours := mins/(24*60), mins/60%24
	mins %= 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
