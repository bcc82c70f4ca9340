package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"notification-service/internal/common/config"
	"notification-service/internal/common/logger"
)

type Server struct {
	httpServer *http.Server
	log        logger.Logger
}

func NewServer(cfg config.HTTPConfig, handler *Handler, log logger.Logger) *Server {
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      mux,
			ReadTimeout:  cfg.ReadTimeoutDuration(),
			WriteTimeout: cfg.WriteTimeoutDuration(),
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// RegisterRoutes attaches every endpoint to the mux. Method-qualified
// patterns do the routing; no external router is involved.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Dispatch pipeline
	mux.HandleFunc("POST /api/v1/notifications/send", h.handleSend)
	mux.HandleFunc("POST /api/v1/notifications/send-bulk", h.handleSendBulk)
	mux.HandleFunc("POST /api/v1/notifications/{id}/retry", h.handleRetry)
	mux.HandleFunc("GET /api/v1/notifications/health", h.handleHealth)
	mux.HandleFunc("GET /api/v1/notifications/{id}", h.handleGetDelivery)

	// Tenant management
	mux.HandleFunc("POST /api/v1/applications", h.handleRegisterTenant)
	mux.HandleFunc("GET /api/v1/applications", h.handleListTenants)
	mux.HandleFunc("GET /api/v1/applications/{id}", h.handleGetTenant)
	mux.HandleFunc("PATCH /api/v1/applications/{id}/status", h.handleUpdateTenantStatus)
	mux.HandleFunc("DELETE /api/v1/applications/{id}", h.handleDeleteTenant)
	mux.HandleFunc("GET /api/v1/applications/{id}/notifications", h.handleListDeliveries)
	mux.HandleFunc("GET /api/v1/applications/{id}/health", h.handleTenantHealth)

	// Template management
	mux.HandleFunc("POST /api/v1/applications/{id}/templates", h.handleCreateTemplate)
	mux.HandleFunc("GET /api/v1/applications/{id}/templates", h.handleListTemplates)
	mux.HandleFunc("GET /api/v1/applications/{id}/templates/{templateId}", h.handleGetTemplate)
	mux.HandleFunc("PUT /api/v1/applications/{id}/templates/{templateId}", h.handleUpdateTemplate)
	mux.HandleFunc("PATCH /api/v1/applications/{id}/templates/{templateId}/status", h.handleUpdateTemplateStatus)
	mux.HandleFunc("DELETE /api/v1/applications/{id}/templates/{templateId}", h.handleDeleteTemplate)
	mux.HandleFunc("GET /api/v1/applications/{id}/templates/{templateId}/tags", h.handleListTags)
	mux.HandleFunc("PATCH /api/v1/applications/{id}/templates/{templateId}/tags/{tagName}", h.handleUpdateTagDatatype)

	// Operational endpoints
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func (s *Server) Start() error {
	s.log.Info("http server listening", map[string]interface{}{"address": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
