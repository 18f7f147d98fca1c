package snapshot

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UnitRecord is a denormalized copy of one hierarchy node at capture time.
type UnitRecord struct {
	ID        uuid.UUID  `json:"id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Name      string     `json:"name"`
	Code      string     `json:"code,omitempty"`
	ManagerID *uuid.UUID `json:"manager_id,omitempty"`
}

// Snapshot is an immutable point-in-time materialization of the full
// hierarchy plus the active head count. It is a derived read-side artifact;
// nothing in the commit path consumes it.
type Snapshot struct {
	ID              uuid.UUID
	OrgID           uuid.UUID
	TakenAt         time.Time
	Departments     []UnitRecord
	Sections        []UnitRecord
	Courses         []UnitRecord
	ActiveEmployees int
}

// Diff is the longitudinal drift between two snapshots of one organization.
type Diff struct {
	AddedDepartments   []UnitRecord
	RemovedDepartments []UnitRecord
	AddedSections      []UnitRecord
	RemovedSections    []UnitRecord
	AddedCourses       []UnitRecord
	RemovedCourses     []UnitRecord
	EmployeeDelta      int
}

// Compare reports units present in next but not in prev (added) and vice
// versa (removed), by unit id, plus the signed head-count delta.
func Compare(prev, next *Snapshot) Diff {
	d := Diff{EmployeeDelta: next.ActiveEmployees - prev.ActiveEmployees}
	d.AddedDepartments, d.RemovedDepartments = diffUnits(prev.Departments, next.Departments)
	d.AddedSections, d.RemovedSections = diffUnits(prev.Sections, next.Sections)
	d.AddedCourses, d.RemovedCourses = diffUnits(prev.Courses, next.Courses)
	return d
}

func diffUnits(prev, next []UnitRecord) (added, removed []UnitRecord) {
	prevIDs := make(map[uuid.UUID]struct{}, len(prev))
	for _, u := range prev {
		prevIDs[u.ID] = struct{}{}
	}
	nextIDs := make(map[uuid.UUID]struct{}, len(next))
	for _, u := range next {
		nextIDs[u.ID] = struct{}{}
	}
	for _, u := range next {
		if _, ok := prevIDs[u.ID]; !ok {
			added = append(added, u)
		}
	}
	for _, u := range prev {
		if _, ok := nextIDs[u.ID]; !ok {
			removed = append(removed, u)
		}
	}
	return added, removed
}

type Repository interface {
	Create(ctx context.Context, s *Snapshot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Snapshot, error)
	Latest(ctx context.Context, orgID uuid.UUID) (*Snapshot, error)
}
