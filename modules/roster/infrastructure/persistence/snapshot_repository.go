package persistence

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/meibo/modules/roster/domain/entities/snapshot"
	"github.com/iota-uz/meibo/pkg/composables"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

type SnapshotRepository struct{}

func NewSnapshotRepository() snapshot.Repository {
	return &SnapshotRepository{}
}

func marshalUnits(units []snapshot.UnitRecord) ([]byte, error) {
	if units == nil {
		units = []snapshot.UnitRecord{}
	}
	return json.Marshal(units)
}

func (r *SnapshotRepository) Create(ctx context.Context, s *snapshot.Snapshot) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	departments, err := marshalUnits(s.Departments)
	if err != nil {
		return err
	}
	sections, err := marshalUnits(s.Sections)
	if err != nil {
		return err
	}
	courses, err := marshalUnits(s.Courses)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
	INSERT INTO roster_snapshots (
		id, org_id, taken_at, departments, sections, courses, active_employees
	)
	VALUES ($1,$2,$3,$4::jsonb,$5::jsonb,$6::jsonb,$7)
	`, pgUUID(s.ID), pgUUID(s.OrgID), s.TakenAt.UTC(), departments, sections, courses, s.ActiveEmployees)
	if err != nil {
		return errors.Wrap(err, "failed to insert snapshot")
	}
	return nil
}

func scanSnapshot(row pgx.Row) (*snapshot.Snapshot, error) {
	var s snapshot.Snapshot
	var id, orgID pgtype.UUID
	var departments, sections, courses []byte

	if err := row.Scan(&id, &orgID, &s.TakenAt, &departments, &sections, &courses, &s.ActiveEmployees); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}

	s.ID = uuidValue(id)
	s.OrgID = uuidValue(orgID)
	if err := json.Unmarshal(departments, &s.Departments); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(sections, &s.Sections); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(courses, &s.Courses); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SnapshotRepository) GetByID(ctx context.Context, id uuid.UUID) (*snapshot.Snapshot, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	return scanSnapshot(tx.QueryRow(ctx, `
	SELECT id, org_id, taken_at, departments, sections, courses, active_employees
	FROM roster_snapshots
	WHERE id = $1
	`, pgUUID(id)))
}

func (r *SnapshotRepository) Latest(ctx context.Context, orgID uuid.UUID) (*snapshot.Snapshot, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	return scanSnapshot(tx.QueryRow(ctx, `
	SELECT id, org_id, taken_at, departments, sections, courses, active_employees
	FROM roster_snapshots
	WHERE org_id = $1
	ORDER BY taken_at DESC
	LIMIT 1
	`, pgUUID(orgID)))
}
