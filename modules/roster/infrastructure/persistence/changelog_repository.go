package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/meibo/modules/roster/domain/entities/changelog"
	"github.com/iota-uz/meibo/pkg/composables"
)

const changelogInsert = `
	INSERT INTO roster_changelog (
		id, org_id, entity_type, entity_id, change_type,
		field, old_value, new_value, description, batch_id, actor, created_at
	)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

type ChangelogRepository struct{}

func NewChangelogRepository() changelog.Repository {
	return &ChangelogRepository{}
}

func entryArgs(e *changelog.Entry) []any {
	return []any{
		pgUUID(e.ID), pgUUID(e.OrgID), e.EntityType, e.EntityID, string(e.ChangeType),
		e.Field, e.OldValue, e.NewValue, e.Description, e.BatchID, e.Actor, e.CreatedAt.UTC(),
	}
}

func (r *ChangelogRepository) Create(ctx context.Context, entry *changelog.Entry) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, changelogInsert, entryArgs(entry)...); err != nil {
		return errors.Wrap(err, "failed to insert changelog entry")
	}
	return nil
}

func (r *ChangelogRepository) CreateMany(ctx context.Context, entries []*changelog.Entry) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if _, err := tx.Exec(ctx, changelogInsert, entryArgs(entry)...); err != nil {
			return errors.Wrap(err, "failed to insert changelog entry")
		}
	}
	return nil
}

func (r *ChangelogRepository) List(ctx context.Context, orgID uuid.UUID, params *changelog.FindParams) ([]*changelog.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	conds := []string{"org_id = $1"}
	args := []any{pgUUID(orgID)}
	if params != nil {
		if params.BatchID != "" {
			args = append(args, params.BatchID)
			conds = append(conds, fmt.Sprintf("batch_id = $%d", len(args)))
		}
		if params.EntityType != "" {
			args = append(args, params.EntityType)
			conds = append(conds, fmt.Sprintf("entity_type = $%d", len(args)))
		}
		if params.EntityID != "" {
			args = append(args, params.EntityID)
			conds = append(conds, fmt.Sprintf("entity_id = $%d", len(args)))
		}
	}

	query := `
	SELECT id, org_id, entity_type, entity_id, change_type,
		field, old_value, new_value, description, batch_id, actor, created_at
	FROM roster_changelog
	WHERE ` + strings.Join(conds, " AND ") + `
	ORDER BY created_at DESC, id`
	if params != nil && params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", params.Limit)
	}
	if params != nil && params.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query changelog")
	}
	defer rows.Close()

	var out []*changelog.Entry
	for rows.Next() {
		var e changelog.Entry
		var id, org pgtype.UUID
		var changeType string
		if err := rows.Scan(
			&id, &org, &e.EntityType, &e.EntityID, &changeType,
			&e.Field, &e.OldValue, &e.NewValue, &e.Description, &e.BatchID, &e.Actor, &e.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan changelog entry")
		}
		e.ID = uuidValue(id)
		e.OrgID = uuidValue(org)
		e.ChangeType = changelog.ChangeType(changeType)
		out = append(out, &e)
	}
	return out, rows.Err()
}
