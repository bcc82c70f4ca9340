// Package repository contains the PostgreSQL persistence layer. Find
// methods return (nil, nil) when no row matches so callers decide
// which domain error applies.
package repository

import (
	"context"
	"database/sql"

	"notification-service/internal/common/errors"
	"notification-service/internal/models"
)

type TenantRepository struct {
	db *sql.DB
}

func NewTenantRepository(db *sql.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = `id, name, api_key, status, created_by, updated_by, created_at, updated_at`

func scanTenant(row interface{ Scan(...interface{}) error }) (*models.Tenant, error) {
	var t models.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.APIKey, &t.Status, &t.CreatedBy, &t.UpdatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) FindByID(ctx context.Context, id int64) (*models.Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	tenant, err := scanTenant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return tenant, nil
}

func (r *TenantRepository) FindByAPIKey(ctx context.Context, apiKey string) (*models.Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE api_key = $1`, apiKey)
	tenant, err := scanTenant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return tenant, nil
}

func (r *TenantRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tenants WHERE name = $1 AND status <> $2)`,
		name, models.TenantDeleted).Scan(&exists)
	if err != nil {
		return false, errors.NewDatabaseError(err)
	}
	return exists, nil
}

func (r *TenantRepository) Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO tenants (name, api_key, status, created_by, updated_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+tenantColumns,
		tenant.Name, tenant.APIKey, tenant.Status, tenant.CreatedBy, tenant.UpdatedBy)
	created, err := scanTenant(row)
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return created, nil
}

func (r *TenantRepository) UpdateStatus(ctx context.Context, id int64, status, actor string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET status = $1, updated_by = $2, updated_at = NOW() WHERE id = $3`,
		status, actor, id)
	if err != nil {
		return errors.NewDatabaseError(err)
	}
	return nil
}

func (r *TenantRepository) List(ctx context.Context) ([]models.Tenant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE status <> $1 ORDER BY id`,
		models.TenantDeleted)
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, errors.NewDatabaseError(err)
		}
		tenants = append(tenants, *tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return tenants, nil
}
