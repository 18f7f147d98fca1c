package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/meibo/modules/roster/domain/aggregates/employee"
	"github.com/iota-uz/meibo/modules/roster/domain/entities/orgunit"
	"github.com/iota-uz/meibo/pkg/composables"
)

const employeeColumns = `
	e.id, e.org_id, e.number, e.name, e.kana, e.email, e.phone,
	e.position, e.position_code, e.grade, e.grade_code,
	e.employment_type, e.employment_type_code,
	e.hire_date, e.birth_date, e.active,
	e.department_id, e.section_id, e.course_id,
	e.created_at, e.updated_at`

type EmployeeRepository struct{}

func NewEmployeeRepository() employee.Repository {
	return &EmployeeRepository{}
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var e employee.Employee
	var id, orgID, departmentID, sectionID, courseID pgtype.UUID
	var hireDate, birthDate pgtype.Date

	if err := row.Scan(
		&id, &orgID, &e.Number, &e.Name, &e.Kana, &e.Email, &e.Phone,
		&e.Position, &e.PositionCode, &e.Grade, &e.GradeCode,
		&e.EmploymentType, &e.EmploymentTypeCode,
		&hireDate, &birthDate, &e.Active,
		&departmentID, &sectionID, &courseID,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	e.ID = uuidValue(id)
	e.OrgID = uuidValue(orgID)
	e.DepartmentID = uuidValue(departmentID)
	e.SectionID = uuidPtrValue(sectionID)
	e.CourseID = uuidPtrValue(courseID)
	e.HireDate = datePtrValue(hireDate)
	e.BirthDate = datePtrValue(birthDate)
	return &e, nil
}

func (r *EmployeeRepository) GetActiveViews(ctx context.Context, orgID uuid.UUID) ([]*employee.View, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
	SELECT`+employeeColumns+`,
		d.name AS department_name,
		COALESCE(s.name, '') AS section_name,
		COALESCE(c.name, '') AS course_name
	FROM roster_employees e
	JOIN roster_units d ON d.id = e.department_id
	LEFT JOIN roster_units s ON s.id = e.section_id
	LEFT JOIN roster_units c ON c.id = e.course_id
	WHERE e.org_id = $1 AND e.active
	ORDER BY e.number
	`, pgUUID(orgID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query active employees")
	}
	defer rows.Close()

	var views []*employee.View
	for rows.Next() {
		var v employee.View
		var id, org, departmentID, sectionID, courseID pgtype.UUID
		var hireDate, birthDate pgtype.Date

		if err := rows.Scan(
			&id, &org, &v.Number, &v.Name, &v.Kana, &v.Email, &v.Phone,
			&v.Position, &v.PositionCode, &v.Grade, &v.GradeCode,
			&v.EmploymentType, &v.EmploymentTypeCode,
			&hireDate, &birthDate, &v.Active,
			&departmentID, &sectionID, &courseID,
			&v.CreatedAt, &v.UpdatedAt,
			&v.DepartmentName, &v.SectionName, &v.CourseName,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan employee view")
		}

		v.ID = uuidValue(id)
		v.OrgID = uuidValue(org)
		v.DepartmentID = uuidValue(departmentID)
		v.SectionID = uuidPtrValue(sectionID)
		v.CourseID = uuidPtrValue(courseID)
		v.HireDate = datePtrValue(hireDate)
		v.BirthDate = datePtrValue(birthDate)
		views = append(views, &v)
	}
	return views, rows.Err()
}

func (r *EmployeeRepository) findOne(ctx context.Context, cond string, args ...any) (*employee.Employee, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	e, err := scanEmployee(tx.QueryRow(ctx, `
	SELECT`+employeeColumns+`
	FROM roster_employees e
	WHERE `+cond, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *EmployeeRepository) FindByNumber(ctx context.Context, orgID uuid.UUID, number string) (*employee.Employee, error) {
	return r.findOne(ctx, `e.org_id = $1 AND e.number = $2`, pgUUID(orgID), number)
}

func (r *EmployeeRepository) FindByEmail(ctx context.Context, orgID uuid.UUID, email string) (*employee.Employee, error) {
	return r.findOne(ctx, `e.org_id = $1 AND e.email = $2 AND e.email <> ''`, pgUUID(orgID), email)
}

func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
	INSERT INTO roster_employees (
		id, org_id, number, name, kana, email, phone,
		position, position_code, grade, grade_code,
		employment_type, employment_type_code,
		hire_date, birth_date, active,
		department_id, section_id, course_id
	)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`,
		pgUUID(e.ID), pgUUID(e.OrgID), e.Number, e.Name, e.Kana, e.Email, e.Phone,
		e.Position, e.PositionCode, e.Grade, e.GradeCode,
		e.EmploymentType, e.EmploymentTypeCode,
		pgDatePtr(e.HireDate), pgDatePtr(e.BirthDate), e.Active,
		pgUUID(e.DepartmentID), pgUUIDPtr(e.SectionID), pgUUIDPtr(e.CourseID),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to insert employee %s", e.Number)
	}
	return nil
}

func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
	UPDATE roster_employees SET
		number = $2, name = $3, kana = $4, email = $5, phone = $6,
		position = $7, position_code = $8, grade = $9, grade_code = $10,
		employment_type = $11, employment_type_code = $12,
		hire_date = $13, birth_date = $14, active = $15,
		department_id = $16, section_id = $17, course_id = $18,
		updated_at = now()
	WHERE id = $1
	`,
		pgUUID(e.ID), e.Number, e.Name, e.Kana, e.Email, e.Phone,
		e.Position, e.PositionCode, e.Grade, e.GradeCode,
		e.EmploymentType, e.EmploymentTypeCode,
		pgDatePtr(e.HireDate), pgDatePtr(e.BirthDate), e.Active,
		pgUUID(e.DepartmentID), pgUUIDPtr(e.SectionID), pgUUIDPtr(e.CourseID),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update employee %s", e.Number)
	}
	if tag.RowsAffected() == 0 {
		return errors.Errorf("employee %s not found", e.Number)
	}
	return nil
}

func (r *EmployeeRepository) DeactivateMissing(ctx context.Context, orgID uuid.UUID, keep []string) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	if keep == nil {
		keep = []string{}
	}
	tag, err := tx.Exec(ctx, `
	UPDATE roster_employees
	SET active = FALSE, updated_at = now()
	WHERE org_id = $1 AND active AND NOT (number = ANY($2))
	`, pgUUID(orgID), keep)
	if err != nil {
		return 0, errors.Wrap(err, "failed to deactivate absent employees")
	}
	return tag.RowsAffected(), nil
}

func (r *EmployeeRepository) ListActiveByUnit(ctx context.Context, level orgunit.Level, unitID uuid.UUID) ([]*employee.Employee, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var col string
	switch level {
	case orgunit.LevelDepartment:
		col = "department_id"
	case orgunit.LevelSection:
		col = "section_id"
	case orgunit.LevelCourse:
		col = "course_id"
	default:
		return nil, errors.Errorf("unknown unit level %q", level)
	}

	rows, err := tx.Query(ctx, fmt.Sprintf(`
	SELECT`+employeeColumns+`
	FROM roster_employees e
	WHERE e.active AND e.%s = $1
	ORDER BY e.number
	`, col), pgUUID(unitID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query employees by unit")
	}
	defer rows.Close()

	var out []*employee.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EmployeeRepository) CountActive(ctx context.Context, orgID uuid.UUID) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := tx.QueryRow(ctx, `
	SELECT count(*) FROM roster_employees WHERE org_id = $1 AND active
	`, pgUUID(orgID)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
