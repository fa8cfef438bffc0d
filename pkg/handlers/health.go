package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/desa-digital/portal-engine/pkg/config"
	"github.com/desa-digital/portal-engine/pkg/database"
)

// StatusReporter is the part of the registry the health endpoints need.
type StatusReporter interface {
	TestConnection(ctx context.Context, domain string) bool
	GetStatus(ctx context.Context) map[string]database.HealthRecord
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Port      int    `json:"port"`
	Timestamp string `json:"timestamp"`
}

// StatusResponse is the body of GET /api/database/status.
type StatusResponse struct {
	Success     bool                             `json:"success"`
	Data        map[string]database.HealthRecord `json:"data"`
	Description string                           `json:"description"`
}

// HealthHandler serves liveness and database status for this process's domain.
type HealthHandler struct {
	domain   config.DomainConfig
	reporter StatusReporter
	now      func() time.Time
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler for domain.
func NewHealthHandler(domain config.DomainConfig, reporter StatusReporter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{domain: domain, reporter: reporter, now: time.Now, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/database/status", h.Status)
}

// Health handles GET /health. It answers 503 while the domain's database does
// not respond to a ping.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Database:  h.domain.Name,
		Port:      h.domain.Port,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if !h.reporter.TestConnection(r.Context(), h.domain.Name) {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	if err := WriteJSON(w, status, resp); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Status handles GET /api/database/status.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Success:     true,
		Data:        h.reporter.GetStatus(r.Context()),
		Description: h.domain.Description,
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode status response", zap.Error(err))
	}
}
