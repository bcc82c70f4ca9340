// Package templates manages the template lifecycle: creation,
// content updates with tag re-extraction, datatype assignment,
// status transitions and soft deletion.
package templates

import (
	"context"
	"fmt"
	"strings"

	"notification-service/internal/common/errors"
	"notification-service/internal/common/logger"
	"notification-service/internal/models"
	"notification-service/internal/tagging"
)

type TenantStore interface {
	FindByID(ctx context.Context, id int64) (*models.Tenant, error)
}

type TemplateStore interface {
	FindByID(ctx context.Context, id int64) (*models.Template, error)
	ExistsByTenantAndName(ctx context.Context, tenantID int64, name string) (bool, error)
	Create(ctx context.Context, tmpl *models.Template) (*models.Template, error)
	Update(ctx context.Context, tmpl *models.Template) (*models.Template, error)
	UpdateStatus(ctx context.Context, id int64, status, actor string) error
	ListByTenant(ctx context.Context, tenantID int64) ([]models.Template, error)
}

type TagStore interface {
	FindByTemplateID(ctx context.Context, templateID int64) ([]models.TemplateTag, error)
	ReplaceTags(ctx context.Context, templateID int64, names []string) error
	UpdateDatatype(ctx context.Context, templateID int64, name, datatype string) (bool, error)
}

// Limits bounds template content sizes.
type Limits struct {
	MaxSubjectLength int
	MaxBodyLength    int
}

type CreateRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	// Status may be DRAFT or ACTIVE; empty defaults to DRAFT.
	Status string `json:"status,omitempty"`
}

type UpdateRequest struct {
	Name    string `json:"name,omitempty"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

type Service struct {
	tenants   TenantStore
	templates TemplateStore
	tags      TagStore
	log       logger.Logger
	limits    Limits
}

func NewService(tenants TenantStore, templates TemplateStore, tags TagStore, log logger.Logger, limits Limits) *Service {
	return &Service{
		tenants:   tenants,
		templates: templates,
		tags:      tags,
		log:       log,
		limits:    limits,
	}
}

// ==========================
// 1. Creation and Update
// ==========================

// Create stores a new DRAFT template for the tenant and derives its
// tag set from the subject and body.
func (s *Service) Create(ctx context.Context, tenantID int64, req CreateRequest, actor string) (*models.Template, error) {
	tenant, err := s.requireTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.checkContent(req.Name, req.Subject, req.Body); err != nil {
		return nil, err
	}

	status := req.Status
	switch status {
	case "":
		status = models.TemplateDraft
	case models.TemplateDraft, models.TemplateActive:
	default:
		return nil, errors.NewInvalidRequestError(
			fmt.Sprintf("Initial status must be DRAFT or ACTIVE; got '%s'", status))
	}

	exists, err := s.templates.ExistsByTenantAndName(ctx, tenant.ID, req.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.NewDuplicateResourceError(
			fmt.Sprintf("Template with name '%s' already exists for this application", req.Name))
	}

	actor = normalizeActor(actor)
	created, err := s.templates.Create(ctx, &models.Template{
		TenantID:  tenant.ID,
		Name:      strings.TrimSpace(req.Name),
		Subject:   req.Subject,
		Body:      EnsureHTML(req.Body),
		Status:    status,
		CreatedBy: actor,
		UpdatedBy: actor,
	})
	if err != nil {
		return nil, err
	}

	if err := s.refreshTags(ctx, created); err != nil {
		return nil, err
	}

	s.log.Info("template created", map[string]interface{}{
		"tenant_id":   tenant.ID,
		"template_id": created.ID,
		"name":        created.Name,
	})
	return created, nil
}

// Update applies content changes. A subject or body change discards
// the old tag set and re-extracts from the new content; tag datatypes
// reset to STRING in that case.
func (s *Service) Update(ctx context.Context, tenantID, templateID int64, req UpdateRequest, actor string) (*models.Template, error) {
	tmpl, err := s.requireOwnedTemplate(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	if tmpl.Status == models.TemplateArchived {
		return nil, errors.NewInvalidOperationError("Archived templates cannot be edited")
	}

	contentChanged := false
	changed := false
	if req.Name != "" && req.Name != tmpl.Name {
		exists, err := s.templates.ExistsByTenantAndName(ctx, tenantID, req.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errors.NewDuplicateResourceError(
				fmt.Sprintf("Template with name '%s' already exists for this application", req.Name))
		}
		tmpl.Name = strings.TrimSpace(req.Name)
		changed = true
	}
	if req.Subject != "" && req.Subject != tmpl.Subject {
		tmpl.Subject = req.Subject
		contentChanged = true
		changed = true
	}
	if req.Body != "" {
		body := EnsureHTML(req.Body)
		if body != tmpl.Body {
			tmpl.Body = body
			contentChanged = true
			changed = true
		}
	}
	if !changed {
		return nil, errors.NewInvalidRequestError("No changes detected in the update request")
	}
	if err := s.checkContent(tmpl.Name, tmpl.Subject, tmpl.Body); err != nil {
		return nil, err
	}

	tmpl.UpdatedBy = normalizeActor(actor)
	updated, err := s.templates.Update(ctx, tmpl)
	if err != nil {
		return nil, err
	}

	if contentChanged {
		if err := s.refreshTags(ctx, updated); err != nil {
			return nil, err
		}
	}

	s.log.Info("template updated", map[string]interface{}{
		"tenant_id":       tenantID,
		"template_id":     updated.ID,
		"content_changed": contentChanged,
	})
	return updated, nil
}

// ==========================
// 2. Tags
// ==========================

// UpdateTagDatatype assigns a datatype to a declared tag. Tags always
// start as STRING after extraction.
func (s *Service) UpdateTagDatatype(ctx context.Context, tenantID, templateID int64, tagName, datatype, actor string) error {
	if !models.ValidDatatype(datatype) {
		return errors.NewInvalidRequestError(
			fmt.Sprintf("Datatype must be one of STRING, NUMBER, BOOLEAN; got '%s'", datatype))
	}
	if _, err := s.requireOwnedTemplate(ctx, tenantID, templateID); err != nil {
		return err
	}

	found, err := s.tags.UpdateDatatype(ctx, templateID, tagName, datatype)
	if err != nil {
		return err
	}
	if !found {
		return errors.NewTagNotFoundError(tagName)
	}
	return nil
}

func (s *Service) ListTags(ctx context.Context, tenantID, templateID int64) ([]models.TemplateTag, error) {
	if _, err := s.requireOwnedTemplate(ctx, tenantID, templateID); err != nil {
		return nil, err
	}
	return s.tags.FindByTemplateID(ctx, templateID)
}

// refreshTags re-derives the tag set from the template's current
// content and swaps it in atomically.
func (s *Service) refreshTags(ctx context.Context, tmpl *models.Template) error {
	names := tagging.ExtractFromTemplate(tmpl.Subject, tmpl.Body)
	return s.tags.ReplaceTags(ctx, tmpl.ID, names)
}

// ==========================
// 3. Lifecycle
// ==========================

func (s *Service) UpdateStatus(ctx context.Context, tenantID, templateID int64, status, actor string) (*models.Template, error) {
	switch status {
	case models.TemplateDraft, models.TemplateActive, models.TemplateArchived:
	case models.TemplateDeleted:
		return nil, errors.NewInvalidOperationError("Use delete to remove a template")
	default:
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("Unknown template status '%s'", status))
	}

	tmpl, err := s.requireOwnedTemplate(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	if tmpl.Status == status {
		return tmpl, nil
	}

	if err := s.templates.UpdateStatus(ctx, templateID, status, normalizeActor(actor)); err != nil {
		return nil, err
	}
	tmpl.Status = status
	return tmpl, nil
}

// Delete soft-deletes; the row survives for delivery history.
func (s *Service) Delete(ctx context.Context, tenantID, templateID int64, actor string) error {
	if _, err := s.requireOwnedTemplate(ctx, tenantID, templateID); err != nil {
		return err
	}
	return s.templates.UpdateStatus(ctx, templateID, models.TemplateDeleted, normalizeActor(actor))
}

func (s *Service) Get(ctx context.Context, tenantID, templateID int64) (*models.Template, error) {
	return s.requireOwnedTemplate(ctx, tenantID, templateID)
}

// TemplateWithTags bundles a template with its declared tag set.
type TemplateWithTags struct {
	models.Template
	Tags []models.TemplateTag `json:"tags"`
}

func (s *Service) GetWithTags(ctx context.Context, tenantID, templateID int64) (*TemplateWithTags, error) {
	tmpl, err := s.requireOwnedTemplate(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	tags, err := s.tags.FindByTemplateID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []models.TemplateTag{}
	}
	return &TemplateWithTags{Template: *tmpl, Tags: tags}, nil
}

func (s *Service) List(ctx context.Context, tenantID int64) ([]models.Template, error) {
	if _, err := s.requireTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.templates.ListByTenant(ctx, tenantID)
}

// ==========================
// 4. Checks
// ==========================

func (s *Service) requireTenant(ctx context.Context, tenantID int64) (*models.Tenant, error) {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil || tenant.Status == models.TenantDeleted {
		return nil, errors.NewTenantNotFoundError(tenantID)
	}
	return tenant, nil
}

func (s *Service) requireOwnedTemplate(ctx context.Context, tenantID, templateID int64) (*models.Template, error) {
	tmpl, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if tmpl == nil || tmpl.Status == models.TemplateDeleted {
		return nil, errors.NewTemplateNotFoundError(templateID)
	}
	if tmpl.TenantID != tenantID {
		return nil, errors.NewTemplateNotOwnedError(templateID)
	}
	return tmpl, nil
}

func (s *Service) checkContent(name, subject, body string) error {
	var problems []string
	if strings.TrimSpace(name) == "" {
		problems = append(problems, "name must not be blank")
	}
	if strings.TrimSpace(subject) == "" {
		problems = append(problems, "subject must not be blank")
	}
	if s.limits.MaxSubjectLength > 0 && len(subject) > s.limits.MaxSubjectLength {
		problems = append(problems, fmt.Sprintf("subject exceeds %d characters", s.limits.MaxSubjectLength))
	}
	if strings.TrimSpace(body) == "" {
		problems = append(problems, "body must not be blank")
	}
	if s.limits.MaxBodyLength > 0 && len(body) > s.limits.MaxBodyLength {
		problems = append(problems, fmt.Sprintf("body exceeds %d characters", s.limits.MaxBodyLength))
	}
	if len(problems) > 0 {
		return errors.NewInvalidRequestError(strings.Join(problems, "; "))
	}
	return nil
}

func normalizeActor(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return "SYSTEM"
	}
	return actor
}
