package repository

import (
	"context"
	"database/sql"

	"notification-service/internal/common/errors"
	"notification-service/internal/models"
)

type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

const templateColumns = `id, tenant_id, name, subject, body, status, created_by, updated_by, created_at, updated_at`

func scanTemplate(row interface{ Scan(...interface{}) error }) (*models.Template, error) {
	var t models.Template
	err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Subject, &t.Body, &t.Status, &t.CreatedBy, &t.UpdatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TemplateRepository) FindByID(ctx context.Context, id int64) (*models.Template, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE id = $1`, id)
	tmpl, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return tmpl, nil
}

func (r *TemplateRepository) ExistsByTenantAndName(ctx context.Context, tenantID int64, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM templates WHERE tenant_id = $1 AND name = $2 AND status <> $3)`,
		tenantID, name, models.TemplateDeleted).Scan(&exists)
	if err != nil {
		return false, errors.NewDatabaseError(err)
	}
	return exists, nil
}

func (r *TemplateRepository) Create(ctx context.Context, tmpl *models.Template) (*models.Template, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO templates (tenant_id, name, subject, body, status, created_by, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+templateColumns,
		tmpl.TenantID, tmpl.Name, tmpl.Subject, tmpl.Body, tmpl.Status, tmpl.CreatedBy, tmpl.UpdatedBy)
	created, err := scanTemplate(row)
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return created, nil
}

func (r *TemplateRepository) Update(ctx context.Context, tmpl *models.Template) (*models.Template, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE templates
		 SET name = $1, subject = $2, body = $3, status = $4, updated_by = $5, updated_at = NOW()
		 WHERE id = $6
		 RETURNING `+templateColumns,
		tmpl.Name, tmpl.Subject, tmpl.Body, tmpl.Status, tmpl.UpdatedBy, tmpl.ID)
	updated, err := scanTemplate(row)
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return updated, nil
}

func (r *TemplateRepository) UpdateStatus(ctx context.Context, id int64, status, actor string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE templates SET status = $1, updated_by = $2, updated_at = NOW() WHERE id = $3`,
		status, actor, id)
	if err != nil {
		return errors.NewDatabaseError(err)
	}
	return nil
}

// MarkDeletedByTenant soft-deletes every template of a tenant. Used by
// the cascading tenant delete.
func (r *TemplateRepository) MarkDeletedByTenant(ctx context.Context, tenantID int64, actor string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE templates SET status = $1, updated_by = $2, updated_at = NOW()
		 WHERE tenant_id = $3 AND status <> $1`,
		models.TemplateDeleted, actor, tenantID)
	if err != nil {
		return errors.NewDatabaseError(err)
	}
	return nil
}

func (r *TemplateRepository) ListByTenant(ctx context.Context, tenantID int64) ([]models.Template, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE tenant_id = $1 AND status <> $2 ORDER BY id`,
		tenantID, models.TemplateDeleted)
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	defer rows.Close()

	var templates []models.Template
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, errors.NewDatabaseError(err)
		}
		templates = append(templates, *tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return templates, nil
}
