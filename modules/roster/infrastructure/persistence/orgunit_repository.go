package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/meibo/modules/roster/domain/entities/orgunit"
	"github.com/iota-uz/meibo/pkg/composables"
)

var ErrUnitNotFound = errors.New("organization unit not found")

const unitColumns = `
	u.id, u.org_id, u.level, u.name, u.code, u.parent_id, u.manager_id,
	u.created_at, u.updated_at`

type UnitRepository struct{}

func NewUnitRepository() orgunit.Repository {
	return &UnitRepository{}
}

func scanUnit(row pgx.Row) (*orgunit.Unit, error) {
	var u orgunit.Unit
	var id, orgID, parentID, managerID pgtype.UUID
	var level string

	if err := row.Scan(
		&id, &orgID, &level, &u.Name, &u.Code, &parentID, &managerID,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	u.ID = uuidValue(id)
	u.OrgID = uuidValue(orgID)
	u.Level = orgunit.Level(level)
	u.ParentID = uuidPtrValue(parentID)
	u.ManagerID = uuidPtrValue(managerID)
	return &u, nil
}

// findOrCreate looks a unit up by (org, level, name, parent) and inserts it
// when absent. The unique index on those columns makes replays safe.
func (r *UnitRepository) findOrCreate(ctx context.Context, orgID uuid.UUID, level orgunit.Level, parentID *uuid.UUID, name, code string) (*orgunit.Unit, bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, false, err
	}

	u, err := scanUnit(tx.QueryRow(ctx, `
	SELECT`+unitColumns+`
	FROM roster_units u
	WHERE u.org_id = $1 AND u.level = $2 AND u.name = $3
		AND u.parent_id IS NOT DISTINCT FROM $4
	`, pgUUID(orgID), string(level), name, pgUUIDPtr(parentID)))
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, errors.Wrapf(err, "failed to look up %s %q", level, name)
	}

	u, err = scanUnit(tx.QueryRow(ctx, `
	INSERT INTO roster_units (id, org_id, level, name, code, parent_id)
	VALUES ($1,$2,$3,$4,$5,$6)
	RETURNING id, org_id, level, name, code, parent_id, manager_id, created_at, updated_at
	`, pgUUID(uuid.New()), pgUUID(orgID), string(level), name, code, pgUUIDPtr(parentID)))
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to create %s %q", level, name)
	}
	return u, true, nil
}

func (r *UnitRepository) FindOrCreateDepartment(ctx context.Context, orgID uuid.UUID, name, code string) (*orgunit.Unit, bool, error) {
	return r.findOrCreate(ctx, orgID, orgunit.LevelDepartment, nil, name, code)
}

func (r *UnitRepository) FindOrCreateSection(ctx context.Context, orgID, departmentID uuid.UUID, name, code string) (*orgunit.Unit, bool, error) {
	return r.findOrCreate(ctx, orgID, orgunit.LevelSection, &departmentID, name, code)
}

func (r *UnitRepository) FindOrCreateCourse(ctx context.Context, orgID, sectionID uuid.UUID, name, code string) (*orgunit.Unit, bool, error) {
	return r.findOrCreate(ctx, orgID, orgunit.LevelCourse, &sectionID, name, code)
}

func (r *UnitRepository) SetManager(ctx context.Context, unitID, employeeID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
	UPDATE roster_units SET manager_id = $2, updated_at = now() WHERE id = $1
	`, pgUUID(unitID), pgUUID(employeeID))
	if err != nil {
		return errors.Wrap(err, "failed to set unit manager")
	}
	if tag.RowsAffected() == 0 {
		return ErrUnitNotFound
	}
	return nil
}

func (r *UnitRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*orgunit.Unit, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
	SELECT`+unitColumns+`
	FROM roster_units u
	WHERE u.org_id = $1
	ORDER BY u.created_at, u.name
	`, pgUUID(orgID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list organization units")
	}
	defer rows.Close()

	var out []*orgunit.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
