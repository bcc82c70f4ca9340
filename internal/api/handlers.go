// Package api exposes the HTTP surface: dispatch endpoints, tenant
// and template management, delivery queries and health reporting.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"notification-service/internal/common/errors"
	"notification-service/internal/common/logger"
	"notification-service/internal/common/observability"
	"notification-service/internal/models"
	"notification-service/internal/repository"
	"notification-service/internal/service/dispatch"
	"notification-service/internal/service/health"
	"notification-service/internal/service/templates"
)

// actorHeader carries the caller identity used for audit stamping.
// Blank or absent resolves to SYSTEM downstream.
const actorHeader = "X-Actor"

type DispatchService interface {
	Send(ctx context.Context, req dispatch.SendRequest, actor string) (*dispatch.DispatchSummary, error)
	SendBulk(ctx context.Context, req dispatch.BulkSendRequest, actor string) (*dispatch.DispatchSummary, error)
	Retry(ctx context.Context, notificationID int64, actor string) (*dispatch.RetryResult, error)
}

type TenantService interface {
	Register(ctx context.Context, name, actor string) (*models.Tenant, error)
	Get(ctx context.Context, tenantID int64) (*models.Tenant, error)
	List(ctx context.Context) ([]models.Tenant, error)
	UpdateStatus(ctx context.Context, tenantID int64, status, actor string) (*models.Tenant, error)
	Delete(ctx context.Context, tenantID int64, actor string) error
}

type TemplateService interface {
	Create(ctx context.Context, tenantID int64, req templates.CreateRequest, actor string) (*models.Template, error)
	Update(ctx context.Context, tenantID, templateID int64, req templates.UpdateRequest, actor string) (*models.Template, error)
	UpdateStatus(ctx context.Context, tenantID, templateID int64, status, actor string) (*models.Template, error)
	UpdateTagDatatype(ctx context.Context, tenantID, templateID int64, tagName, datatype, actor string) error
	ListTags(ctx context.Context, tenantID, templateID int64) ([]models.TemplateTag, error)
	Delete(ctx context.Context, tenantID, templateID int64, actor string) error
	GetWithTags(ctx context.Context, tenantID, templateID int64) (*templates.TemplateWithTags, error)
	List(ctx context.Context, tenantID int64) ([]models.Template, error)
}

type HealthService interface {
	GetHealth(ctx context.Context) (*health.Summary, error)
	GetTenantHealth(ctx context.Context, tenantID int64) (*health.Summary, error)
}

type DeliveryQueryService interface {
	FindByFilter(ctx context.Context, filter repository.DeliveryFilter) ([]models.DeliveryRecord, error)
	FindByID(ctx context.Context, id int64) (*models.DeliveryRecord, error)
}

type Handler struct {
	dispatch   DispatchService
	tenants    TenantService
	templates  TemplateService
	health     HealthService
	deliveries DeliveryQueryService
	obs        *observability.Observability
	log        logger.Logger
}

func NewHandler(
	dispatchSvc DispatchService,
	tenantSvc TenantService,
	templateSvc TemplateService,
	healthSvc HealthService,
	deliveries DeliveryQueryService,
	obs *observability.Observability,
	log logger.Logger,
) *Handler {
	return &Handler{
		dispatch:   dispatchSvc,
		tenants:    tenantSvc,
		templates:  templateSvc,
		health:     healthSvc,
		deliveries: deliveries,
		obs:        obs,
		log:        log,
	}
}

// ==========================
// 1. Dispatch Endpoints
// ==========================

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req dispatch.SendRequest
	if err := decodeValidated(r, sendSchema, &req); err != nil {
		writeError(w, err)
		return
	}

	summary, err := h.dispatch.Send(r.Context(), req, r.Header.Get(actorHeader))
	h.recordDispatch(r.Context(), "single", start, summary, err)
	if err != nil {
		h.log.Warn("send rejected", map[string]interface{}{
			"template_id": req.TemplateID,
			"error":       err.Error(),
		})
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleSendBulk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req dispatch.BulkSendRequest
	if err := decodeValidated(r, sendBulkSchema, &req); err != nil {
		writeError(w, err)
		return
	}

	summary, err := h.dispatch.SendBulk(r.Context(), req, r.Header.Get(actorHeader))
	h.recordDispatch(r.Context(), "bulk", start, summary, err)
	if err != nil {
		h.log.Warn("bulk send rejected", map[string]interface{}{
			"template_id": req.TemplateID,
			"recipients":  len(req.Recipients),
			"error":       err.Error(),
		})
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.dispatch.Retry(r.Context(), id, r.Header.Get(actorHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) recordDispatch(ctx context.Context, mode string, start time.Time, summary *dispatch.DispatchSummary, err error) {
	if h.obs == nil {
		return
	}
	status := "rejected"
	if err == nil && summary != nil {
		status = summary.Status
	}
	h.obs.RecordDispatch(ctx, mode, status)
	h.obs.RecordDispatchDuration(ctx, time.Since(start), mode)
}

// ==========================
// 2. Health and Delivery Queries
// ==========================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	summary, err := h.health.GetHealth(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleTenantHealth(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := h.health.GetTenantHealth(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	query := r.URL.Query()
	status := query.Get("status")
	if status != "" && status != models.DeliverySent && status != models.DeliveryFailed {
		writeError(w, errors.NewInvalidRequestError("status filter must be SENT or FAILED"))
		return
	}
	filter := repository.DeliveryFilter{
		TenantID:  tenantID,
		Recipient: query.Get("recipient"),
		Status:    status,
	}
	if raw := query.Get("templateId"); raw != "" {
		templateID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || templateID < 1 {
			writeError(w, errors.NewInvalidRequestError("templateId filter must be a positive integer"))
			return
		}
		filter.TemplateID = templateID
	}

	records, err := h.deliveries.FindByFilter(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []models.DeliveryRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleGetDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	record, err := h.deliveries.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if record == nil {
		writeError(w, errors.NewNotificationNotFoundError(id))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// ==========================
// 3. Tenant Endpoints
// ==========================

func (h *Handler) handleRegisterTenant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeValidated(r, registerTenantSchema, &req); err != nil {
		writeError(w, err)
		return
	}

	tenant, err := h.tenants.Register(r.Context(), req.Name, r.Header.Get(actorHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

func (h *Handler) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenants.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if tenants == nil {
		tenants = []models.Tenant{}
	}
	writeJSON(w, http.StatusOK, tenants)
}

func (h *Handler) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	tenant, err := h.tenants.Get(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

func (h *Handler) handleUpdateTenantStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeValidated(r, updateStatusSchema, &req); err != nil {
		writeError(w, err)
		return
	}

	tenant, err := h.tenants.UpdateStatus(r.Context(), tenantID, req.Status, r.Header.Get(actorHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

func (h *Handler) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.tenants.Delete(r.Context(), tenantID, r.Header.Get(actorHeader)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ==========================
// 4. Template Endpoints
// ==========================

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req templates.CreateRequest
	if err := decodeValidated(r, createTemplateSchema, &req); err != nil {
		writeError(w, err)
		return
	}

	tmpl, err := h.templates.Create(r.Context(), tenantID, req, r.Header.Get(actorHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tmpl)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.templates.List(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []models.Template{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, templateID, err := tenantTemplateIDs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	tmpl, err := h.templates.GetWithTags(r.Context(), tenantID, templateID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (h *Handler) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, templateID, err := tenantTemplateIDs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req templates.UpdateRequest
	if err := decodeValidated(r, updateTemplateSchema, &req); err != nil {
		writeError(w, err)
		return
	}

	tmpl, err := h.templates.Update(r.Context(), tenantID, templateID, req, r.Header.Get(actorHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (h *Handler) handleUpdateTemplateStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, templateID, err := tenantTemplateIDs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeValidated(r, updateStatusSchema, &req); err != nil {
		writeError(w, err)
		return
	}

	tmpl, err := h.templates.UpdateStatus(r.Context(), tenantID, templateID, req.Status, r.Header.Get(actorHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (h *Handler) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, templateID, err := tenantTemplateIDs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.templates.Delete(r.Context(), tenantID, templateID, r.Header.Get(actorHeader)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListTags(w http.ResponseWriter, r *http.Request) {
	tenantID, templateID, err := tenantTemplateIDs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	tags, err := h.templates.ListTags(r.Context(), tenantID, templateID)
	if err != nil {
		writeError(w, err)
		return
	}
	if tags == nil {
		tags = []models.TemplateTag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *Handler) handleUpdateTagDatatype(w http.ResponseWriter, r *http.Request) {
	tenantID, templateID, err := tenantTemplateIDs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	tagName := r.PathValue("tagName")
	var req struct {
		Datatype string `json:"datatype"`
	}
	if err := decodeValidated(r, updateTagSchema, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.templates.UpdateTagDatatype(r.Context(), tenantID, templateID, tagName, req.Datatype, r.Header.Get(actorHeader)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ==========================
// 5. Path Helpers
// ==========================

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.NewInvalidRequestError("path parameter '" + name + "' must be a positive integer")
	}
	return id, nil
}

func tenantTemplateIDs(r *http.Request) (int64, int64, error) {
	tenantID, err := pathID(r, "id")
	if err != nil {
		return 0, 0, err
	}
	templateID, err := pathID(r, "templateId")
	if err != nil {
		return 0, 0, err
	}
	return tenantID, templateID, nil
}
