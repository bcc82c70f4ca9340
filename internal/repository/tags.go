package repository

import (
	"context"
	"database/sql"

	"notification-service/internal/common/errors"
	"notification-service/internal/models"
)

type TagRepository struct {
	db *sql.DB
}

func NewTagRepository(db *sql.DB) *TagRepository {
	return &TagRepository{db: db}
}

const tagColumns = `id, template_id, name, datatype, created_at, updated_at`

func (r *TagRepository) FindByTemplateID(ctx context.Context, templateID int64) ([]models.TemplateTag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM template_tags WHERE template_id = $1 ORDER BY id`,
		templateID)
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	defer rows.Close()

	var tags []models.TemplateTag
	for rows.Next() {
		var tag models.TemplateTag
		if err := rows.Scan(&tag.ID, &tag.TemplateID, &tag.Name, &tag.Datatype, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
			return nil, errors.NewDatabaseError(err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return tags, nil
}

// ReplaceTags swaps a template's tag set atomically. The delete and
// the inserts run in one transaction so a partial rewrite can never
// be observed.
func (r *TagRepository) ReplaceTags(ctx context.Context, templateID int64, names []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseError(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM template_tags WHERE template_id = $1`, templateID); err != nil {
		return errors.NewDatabaseError(err)
	}

	for _, name := range names {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO template_tags (template_id, name, datatype) VALUES ($1, $2, $3)`,
			templateID, name, models.DatatypeString); err != nil {
			return errors.NewDatabaseError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError(err)
	}
	return nil
}

func (r *TagRepository) UpdateDatatype(ctx context.Context, templateID int64, name, datatype string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE template_tags SET datatype = $1, updated_at = NOW()
		 WHERE template_id = $2 AND name = $3`,
		datatype, templateID, name)
	if err != nil {
		return false, errors.NewDatabaseError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewDatabaseError(err)
	}
	return affected > 0, nil
}
