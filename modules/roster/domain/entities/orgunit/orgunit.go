package orgunit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Level identifies a node's depth in the fixed three-level hierarchy.
type Level string

const (
	LevelDepartment Level = "department"
	LevelSection    Level = "section"
	LevelCourse     Level = "course"
)

// Unit is one node of the department -> section -> course tree. Name is
// unique within its parent; two sections under different departments may
// share a name. Departments have no ParentID (their parent is the
// organization itself).
type Unit struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Level     Level
	Name      string
	Code      string
	ParentID  *uuid.UUID
	ManagerID *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repository interface {
	// FindOrCreate* methods are idempotent: lookup by (name, parent) always
	// precedes the insert, so replaying a batch never duplicates units.
	// The bool reports whether a new unit was created.
	FindOrCreateDepartment(ctx context.Context, orgID uuid.UUID, name, code string) (*Unit, bool, error)
	FindOrCreateSection(ctx context.Context, orgID, departmentID uuid.UUID, name, code string) (*Unit, bool, error)
	FindOrCreateCourse(ctx context.Context, orgID, sectionID uuid.UUID, name, code string) (*Unit, bool, error)

	SetManager(ctx context.Context, unitID, employeeID uuid.UUID) error
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Unit, error)
}
