package repository

import (
	"context"
	"database/sql"
	"fmt"

	"notification-service/internal/common/errors"
	"notification-service/internal/models"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, tenant_id, template_id, recipient, subject, body, status, error_message, retry_count, created_by, updated_by, created_at, updated_at`

func scanNotification(row interface{ Scan(...interface{}) error }) (*models.DeliveryRecord, error) {
	var n models.DeliveryRecord
	var errMsg sql.NullString
	err := row.Scan(&n.ID, &n.TenantID, &n.TemplateID, &n.Recipient, &n.Subject, &n.Body,
		&n.Status, &errMsg, &n.RetryCount, &n.CreatedBy, &n.UpdatedBy, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.ErrorMessage = errMsg.String
	return &n, nil
}

func (r *NotificationRepository) Create(ctx context.Context, record *models.DeliveryRecord) (*models.DeliveryRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO notifications (tenant_id, template_id, recipient, subject, body, status, error_message, retry_count, created_by, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
		 RETURNING `+notificationColumns,
		record.TenantID, record.TemplateID, record.Recipient, record.Subject, record.Body,
		record.Status, record.ErrorMessage, record.RetryCount, record.CreatedBy, record.UpdatedBy)
	created, err := scanNotification(row)
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return created, nil
}

// UpdateOutcome persists a retry result: the new status, the error
// message (cleared when empty) and the incremented retry counter.
func (r *NotificationRepository) UpdateOutcome(ctx context.Context, record *models.DeliveryRecord) (*models.DeliveryRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE notifications
		 SET status = $1, error_message = NULLIF($2, ''), retry_count = $3, updated_by = $4, updated_at = NOW()
		 WHERE id = $5
		 RETURNING `+notificationColumns,
		record.Status, record.ErrorMessage, record.RetryCount, record.UpdatedBy, record.ID)
	updated, err := scanNotification(row)
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return updated, nil
}

func (r *NotificationRepository) FindByID(ctx context.Context, id int64) (*models.DeliveryRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	record, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return record, nil
}

// DeliveryFilter narrows a delivery record listing. Zero values mean
// "no constraint" for that field.
type DeliveryFilter struct {
	TenantID   int64
	TemplateID int64
	Recipient  string
	Status     string
}

// FindByFilter lists delivery records matching every set filter
// field, newest first.
func (r *NotificationRepository) FindByFilter(ctx context.Context, filter DeliveryFilter) ([]models.DeliveryRecord, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE tenant_id = $1`
	args := []interface{}{filter.TenantID}
	if filter.TemplateID != 0 {
		args = append(args, filter.TemplateID)
		query += fmt.Sprintf(` AND template_id = $%d`, len(args))
	}
	if filter.Recipient != "" {
		args = append(args, filter.Recipient)
		query += fmt.Sprintf(` AND recipient = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	defer rows.Close()

	var records []models.DeliveryRecord
	for rows.Next() {
		record, err := scanNotification(rows)
		if err != nil {
			return nil, errors.NewDatabaseError(err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return records, nil
}

// StatusCounts holds the per-status delivery totals for a tenant.
type StatusCounts struct {
	Sent   int64
	Failed int64
}

// CountAllByStatus totals delivery outcomes across every tenant.
func (r *NotificationRepository) CountAllByStatus(ctx context.Context) (StatusCounts, error) {
	var counts StatusCounts
	err := r.db.QueryRowContext(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE status = $1),
		   COUNT(*) FILTER (WHERE status = $2)
		 FROM notifications`,
		models.DeliverySent, models.DeliveryFailed).
		Scan(&counts.Sent, &counts.Failed)
	if err != nil {
		return StatusCounts{}, errors.NewDatabaseError(err)
	}
	return counts, nil
}

func (r *NotificationRepository) CountByStatus(ctx context.Context, tenantID int64) (StatusCounts, error) {
	var counts StatusCounts
	err := r.db.QueryRowContext(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE status = $2),
		   COUNT(*) FILTER (WHERE status = $3)
		 FROM notifications WHERE tenant_id = $1`,
		tenantID, models.DeliverySent, models.DeliveryFailed).
		Scan(&counts.Sent, &counts.Failed)
	if err != nil {
		return StatusCounts{}, errors.NewDatabaseError(err)
	}
	return counts, nil
}
