// Package tenants manages application registration and lifecycle.
// Each tenant receives an opaque API key on registration; deletion is
// a soft status stamp that cascades to the tenant's templates.
package tenants

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"notification-service/internal/common/errors"
	"notification-service/internal/common/logger"
	"notification-service/internal/models"
)

type TenantStore interface {
	FindByID(ctx context.Context, id int64) (*models.Tenant, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error)
	UpdateStatus(ctx context.Context, id int64, status, actor string) error
	List(ctx context.Context) ([]models.Tenant, error)
}

type TemplateStore interface {
	MarkDeletedByTenant(ctx context.Context, tenantID int64, actor string) error
}

type Service struct {
	tenants   TenantStore
	templates TemplateStore
	log       logger.Logger
}

func NewService(tenants TenantStore, templates TemplateStore, log logger.Logger) *Service {
	return &Service{tenants: tenants, templates: templates, log: log}
}

// Register creates a new ACTIVE tenant with a freshly generated API
// key. The key is returned once here; it is the caller's credential
// for every dispatch call.
func (s *Service) Register(ctx context.Context, name, actor string) (*models.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewInvalidRequestError("application name must not be blank")
	}

	exists, err := s.tenants.ExistsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.NewDuplicateResourceError(
			fmt.Sprintf("Application with name '%s' already exists", name))
	}

	actor = normalizeActor(actor)
	created, err := s.tenants.Create(ctx, &models.Tenant{
		Name:      name,
		APIKey:    uuid.NewString(),
		Status:    models.TenantActive,
		CreatedBy: actor,
		UpdatedBy: actor,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("tenant registered", map[string]interface{}{
		"tenant_id": created.ID,
		"name":      created.Name,
	})
	return created, nil
}

func (s *Service) Get(ctx context.Context, tenantID int64) (*models.Tenant, error) {
	return s.requireTenant(ctx, tenantID)
}

func (s *Service) List(ctx context.Context) ([]models.Tenant, error) {
	return s.tenants.List(ctx)
}

// UpdateStatus moves a tenant between ACTIVE and ARCHIVED. DELETED is
// terminal and only reachable through Delete.
func (s *Service) UpdateStatus(ctx context.Context, tenantID int64, status, actor string) (*models.Tenant, error) {
	switch status {
	case models.TenantActive, models.TenantArchived:
	case models.TenantDeleted:
		return nil, errors.NewInvalidOperationError("Use delete to remove an application")
	default:
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("Unknown application status '%s'", status))
	}

	tenant, err := s.requireTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Status == status {
		return tenant, nil
	}

	if err := s.tenants.UpdateStatus(ctx, tenantID, status, normalizeActor(actor)); err != nil {
		return nil, err
	}
	tenant.Status = status
	return tenant, nil
}

// Delete soft-deletes the tenant and stamps every owned template
// DELETED as well. Delivery records are kept untouched for history.
func (s *Service) Delete(ctx context.Context, tenantID int64, actor string) error {
	if _, err := s.requireTenant(ctx, tenantID); err != nil {
		return err
	}

	actor = normalizeActor(actor)
	if err := s.tenants.UpdateStatus(ctx, tenantID, models.TenantDeleted, actor); err != nil {
		return err
	}
	if err := s.templates.MarkDeletedByTenant(ctx, tenantID, actor); err != nil {
		return err
	}

	s.log.Info("tenant deleted", map[string]interface{}{"tenant_id": tenantID})
	return nil
}

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

func normalizeActor(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return "SYSTEM"
	}
	return actor
}
