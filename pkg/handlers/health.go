package handlers

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/config"
	"github.com/Vvil1568/lct-hackathone/pkg/services/workqueue"
)

// serviceName is reported by /ping.
const serviceName = "lakeadvisor"

// PingResponse describes the running advisor.
type PingResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Hostname    string `json:"hostname,omitempty"`
	GoVersion   string `json:"go_version"`
	Uptime      string `json:"uptime"`
	// OracleProvider and OracleModel are empty in report-only deployments.
	OracleProvider string `json:"oracle_provider,omitempty"`
	OracleModel    string `json:"oracle_model,omitempty"`
}

// HealthResponse reports liveness and job counts.
type HealthResponse struct {
	Status string              `json:"status"`
	Jobs   *workqueue.Progress `json:"jobs,omitempty"`
}

// ProgressReporter exposes job counts.
type ProgressReporter interface {
	Progress() workqueue.Progress
}

// HealthHandler serves /health and /ping.
type HealthHandler struct {
	cfg     *config.Config
	jobs    ProgressReporter
	started time.Time
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. jobs may be nil.
func NewHealthHandler(cfg *config.Config, jobs ProgressReporter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, jobs: jobs, started: time.Now(), logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health reports "ok" plus job counts. It never touches the engine or the oracle.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "ok"}
	if h.jobs != nil {
		p := h.jobs.Progress()
		response.Jobs = &p
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping reports build and deployment details.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	response := PingResponse{
		Status:      "ok",
		Service:     serviceName,
		Version:     h.cfg.Version,
		Environment: h.cfg.Env,
		GoVersion:   runtime.Version(),
		Uptime:      time.Since(h.started).Round(time.Second).String(),
	}
	if hostname, err := os.Hostname(); err == nil {
		response.Hostname = hostname
	}
	if h.cfg.LLM.Model != "" {
		response.OracleProvider = h.cfg.LLM.Provider
		response.OracleModel = h.cfg.LLM.Model
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
