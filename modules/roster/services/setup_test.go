package services

import (
	"context"
	"sort"
	"testing"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/meibo/modules/roster/domain/aggregates/employee"
	"github.com/iota-uz/meibo/modules/roster/domain/entities/changelog"
	"github.com/iota-uz/meibo/modules/roster/domain/entities/orgunit"
	"github.com/iota-uz/meibo/modules/roster/domain/entities/snapshot"
)

// memState is the shared backing store of the in-memory fakes. The tx seam
// override snapshots and restores it, so failing commits roll back just like
// a real transaction.
type memState struct {
	employees []*employee.Employee
	units     []*orgunit.Unit
	entries   []*changelog.Entry
	snapshots []*snapshot.Snapshot
}

type stateBox struct {
	cur *memState
}

func newStateBox() *stateBox {
	return &stateBox{cur: &memState{}}
}

func (s *memState) clone() *memState {
	out := &memState{}
	for _, e := range s.employees {
		copied := *e
		out.employees = append(out.employees, &copied)
	}
	for _, u := range s.units {
		copied := *u
		out.units = append(out.units, &copied)
	}
	out.entries = append(out.entries, s.entries...)
	out.snapshots = append(out.snapshots, s.snapshots...)
	return out
}

// useMemTx routes the service transaction seam to the box: run the body
// against the live state and restore the pre-call state on error.
func useMemTx(t *testing.T, box *stateBox) {
	t.Helper()
	prev := inTxFn
	inTxFn = func(ctx context.Context, fn func(context.Context) error) error {
		saved := box.cur.clone()
		if err := fn(ctx); err != nil {
			box.cur = saved
			return err
		}
		return nil
	}
	t.Cleanup(func() { inTxFn = prev })
}

type memEmployeeRepo struct {
	box *stateBox
	// failUpdateNumber makes Update on that employee number fail, to exercise
	// mid-transaction aborts.
	failUpdateNumber string
}

func (r *memEmployeeRepo) find(number string) *employee.Employee {
	for _, e := range r.box.cur.employees {
		if e.Number == number {
			return e
		}
	}
	return nil
}

func (r *memEmployeeRepo) unitName(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	for _, u := range r.box.cur.units {
		if u.ID == *id {
			return u.Name
		}
	}
	return ""
}

func (r *memEmployeeRepo) GetActiveViews(_ context.Context, orgID uuid.UUID) ([]*employee.View, error) {
	var views []*employee.View
	for _, e := range r.box.cur.employees {
		if !e.Active || e.OrgID != orgID {
			continue
		}
		copied := *e
		views = append(views, &employee.View{
			Employee:       copied,
			DepartmentName: r.unitName(&e.DepartmentID),
			SectionName:    r.unitName(e.SectionID),
			CourseName:     r.unitName(e.CourseID),
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Number < views[j].Number })
	return views, nil
}

func (r *memEmployeeRepo) FindByNumber(_ context.Context, orgID uuid.UUID, number string) (*employee.Employee, error) {
	if e := r.find(number); e != nil && e.OrgID == orgID {
		copied := *e
		return &copied, nil
	}
	return nil, nil
}

func (r *memEmployeeRepo) FindByEmail(_ context.Context, orgID uuid.UUID, email string) (*employee.Employee, error) {
	for _, e := range r.box.cur.employees {
		if e.OrgID == orgID && e.Email == email {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memEmployeeRepo) Create(_ context.Context, e *employee.Employee) error {
	copied := *e
	r.box.cur.employees = append(r.box.cur.employees, &copied)
	return nil
}

func (r *memEmployeeRepo) Update(_ context.Context, e *employee.Employee) error {
	if e.Number == r.failUpdateNumber && r.failUpdateNumber != "" {
		return errors.New("forced update failure")
	}
	for _, stored := range r.box.cur.employees {
		if stored.ID == e.ID {
			*stored = *e
			return nil
		}
	}
	return errors.Errorf("employee %s not found", e.Number)
}

func (r *memEmployeeRepo) DeactivateMissing(_ context.Context, orgID uuid.UUID, keep []string) (int64, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, n := range keep {
		keepSet[n] = struct{}{}
	}
	var retired int64
	for _, e := range r.box.cur.employees {
		if e.OrgID != orgID || !e.Active {
			continue
		}
		if _, ok := keepSet[e.Number]; !ok {
			e.Active = false
			retired++
		}
	}
	return retired, nil
}

func (r *memEmployeeRepo) ListActiveByUnit(_ context.Context, level orgunit.Level, unitID uuid.UUID) ([]*employee.Employee, error) {
	var out []*employee.Employee
	for _, e := range r.box.cur.employees {
		if !e.Active {
			continue
		}
		var match bool
		switch level {
		case orgunit.LevelDepartment:
			match = e.DepartmentID == unitID
		case orgunit.LevelSection:
			match = e.SectionID != nil && *e.SectionID == unitID
		case orgunit.LevelCourse:
			match = e.CourseID != nil && *e.CourseID == unitID
		}
		if match {
			copied := *e
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *memEmployeeRepo) CountActive(_ context.Context, orgID uuid.UUID) (int64, error) {
	var n int64
	for _, e := range r.box.cur.employees {
		if e.OrgID == orgID && e.Active {
			n++
		}
	}
	return n, nil
}

type memUnitRepo struct {
	box *stateBox
}

func (r *memUnitRepo) findOrCreate(orgID uuid.UUID, level orgunit.Level, parentID *uuid.UUID, name, code string) (*orgunit.Unit, bool, error) {
	for _, u := range r.box.cur.units {
		if u.OrgID != orgID || u.Level != level || u.Name != name {
			continue
		}
		if (u.ParentID == nil) != (parentID == nil) {
			continue
		}
		if u.ParentID != nil && *u.ParentID != *parentID {
			continue
		}
		return u, false, nil
	}
	u := &orgunit.Unit{
		ID:       uuid.New(),
		OrgID:    orgID,
		Level:    level,
		Name:     name,
		Code:     code,
		ParentID: parentID,
	}
	r.box.cur.units = append(r.box.cur.units, u)
	return u, true, nil
}

func (r *memUnitRepo) FindOrCreateDepartment(_ context.Context, orgID uuid.UUID, name, code string) (*orgunit.Unit, bool, error) {
	return r.findOrCreate(orgID, orgunit.LevelDepartment, nil, name, code)
}

func (r *memUnitRepo) FindOrCreateSection(_ context.Context, orgID, departmentID uuid.UUID, name, code string) (*orgunit.Unit, bool, error) {
	return r.findOrCreate(orgID, orgunit.LevelSection, &departmentID, name, code)
}

func (r *memUnitRepo) FindOrCreateCourse(_ context.Context, orgID, sectionID uuid.UUID, name, code string) (*orgunit.Unit, bool, error) {
	return r.findOrCreate(orgID, orgunit.LevelCourse, &sectionID, name, code)
}

func (r *memUnitRepo) SetManager(_ context.Context, unitID, employeeID uuid.UUID) error {
	for _, u := range r.box.cur.units {
		if u.ID == unitID {
			id := employeeID
			u.ManagerID = &id
			return nil
		}
	}
	return errors.New("unit not found")
}

func (r *memUnitRepo) ListByOrg(_ context.Context, orgID uuid.UUID) ([]*orgunit.Unit, error) {
	var out []*orgunit.Unit
	for _, u := range r.box.cur.units {
		if u.OrgID == orgID {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memChangelogRepo struct {
	box *stateBox
}

func (r *memChangelogRepo) Create(_ context.Context, entry *changelog.Entry) error {
	r.box.cur.entries = append(r.box.cur.entries, entry)
	return nil
}

func (r *memChangelogRepo) CreateMany(_ context.Context, entries []*changelog.Entry) error {
	r.box.cur.entries = append(r.box.cur.entries, entries...)
	return nil
}

func (r *memChangelogRepo) List(_ context.Context, orgID uuid.UUID, params *changelog.FindParams) ([]*changelog.Entry, error) {
	var out []*changelog.Entry
	for _, e := range r.box.cur.entries {
		if e.OrgID != orgID {
			continue
		}
		if params != nil {
			if params.BatchID != "" && e.BatchID != params.BatchID {
				continue
			}
			if params.EntityType != "" && e.EntityType != params.EntityType {
				continue
			}
			if params.EntityID != "" && e.EntityID != params.EntityID {
				continue
			}
		}
		out = append(out, e)
	}
	return out, nil
}

type memSnapshotRepo struct {
	box *stateBox
}

func (r *memSnapshotRepo) Create(_ context.Context, s *snapshot.Snapshot) error {
	r.box.cur.snapshots = append(r.box.cur.snapshots, s)
	return nil
}

func (r *memSnapshotRepo) GetByID(_ context.Context, id uuid.UUID) (*snapshot.Snapshot, error) {
	for _, s := range r.box.cur.snapshots {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, errors.New("snapshot not found")
}

func (r *memSnapshotRepo) Latest(_ context.Context, orgID uuid.UUID) (*snapshot.Snapshot, error) {
	var latest *snapshot.Snapshot
	for _, s := range r.box.cur.snapshots {
		if s.OrgID != orgID {
			continue
		}
		if latest == nil || s.TakenAt.After(latest.TakenAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, errors.New("snapshot not found")
	}
	return latest, nil
}
