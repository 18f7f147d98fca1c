package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/meibo/modules/roster/domain/aggregates/employee"
	"github.com/iota-uz/meibo/modules/roster/domain/entities/changelog"
	"github.com/iota-uz/meibo/modules/roster/domain/entities/orgunit"
	"github.com/iota-uz/meibo/modules/roster/domain/entities/snapshot"
)

const employeeEntityType = "employee"

type AuditService struct {
	logs      changelog.Repository
	units     orgunit.Repository
	employees employee.Repository
	snapshots snapshot.Repository
	clock     func() time.Time
}

func NewAuditService(
	logs changelog.Repository,
	units orgunit.Repository,
	employees employee.Repository,
	snapshots snapshot.Repository,
) *AuditService {
	return &AuditService{
		logs:      logs,
		units:     units,
		employees: employees,
		snapshots: snapshots,
		clock:     time.Now,
	}
}

// GenerateBatchID returns the correlation token grouping every audit entry
// of one import: a UTC timestamp plus a random suffix.
func (s *AuditService) GenerateBatchID() string {
	return fmt.Sprintf("%s-%s", s.clock().UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
}

// RecordChangeLog appends one ledger entry. Entries are never updated or
// deleted. Runs on the ambient transaction when one is in the context.
func (s *AuditService) RecordChangeLog(ctx context.Context, entry *changelog.Entry) error {
	return s.logs.Create(ctx, entry)
}

func (s *AuditService) RecordChangeLogs(ctx context.Context, entries []*changelog.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.logs.CreateMany(ctx, entries)
}

func (s *AuditService) ListChangeLogs(ctx context.Context, orgID uuid.UUID, params *changelog.FindParams) ([]*changelog.Entry, error) {
	return inTxResult(ctx, func(txCtx context.Context) ([]*changelog.Entry, error) {
		return s.logs.List(txCtx, orgID, params)
	})
}

// EntriesFromFieldChanges converts reconciler output into ledger rows: one
// entry per changed field with a human-readable description.
func (s *AuditService) EntriesFromFieldChanges(
	orgID uuid.UUID,
	employeeNumber string,
	changeType changelog.ChangeType,
	changes []FieldChange,
	batchID, actor string,
) []*changelog.Entry {
	now := s.clock()
	entries := make([]*changelog.Entry, 0, len(changes))
	for _, c := range changes {
		entries = append(entries, &changelog.Entry{
			ID:          uuid.New(),
			OrgID:       orgID,
			EntityType:  employeeEntityType,
			EntityID:    employeeNumber,
			ChangeType:  changeType,
			Field:       c.Field,
			OldValue:    c.Old,
			NewValue:    c.New,
			Description: fmt.Sprintf("%s: %s → %s", c.Label, displayValue(c.Old), displayValue(c.New)),
			BatchID:     batchID,
			Actor:       actor,
			CreatedAt:   now,
		})
	}
	return entries
}

func (s *AuditService) entryFor(
	orgID uuid.UUID,
	employeeNumber string,
	changeType changelog.ChangeType,
	description, batchID, actor string,
) *changelog.Entry {
	return &changelog.Entry{
		ID:          uuid.New(),
		OrgID:       orgID,
		EntityType:  employeeEntityType,
		EntityID:    employeeNumber,
		ChangeType:  changeType,
		Description: description,
		BatchID:     batchID,
		Actor:       actor,
		CreatedAt:   s.clock(),
	}
}

func displayValue(v string) string {
	if v == "" {
		return "なし"
	}
	return v
}

// CreateOrganizationSnapshot materializes the current tree and head count as
// an immutable value, independent of any import run.
func (s *AuditService) CreateOrganizationSnapshot(ctx context.Context, orgID uuid.UUID) (*snapshot.Snapshot, error) {
	return inTxResult(ctx, func(txCtx context.Context) (*snapshot.Snapshot, error) {
		units, err := s.units.ListByOrg(txCtx, orgID)
		if err != nil {
			return nil, err
		}
		count, err := s.employees.CountActive(txCtx, orgID)
		if err != nil {
			return nil, err
		}

		snap := &snapshot.Snapshot{
			ID:              uuid.New(),
			OrgID:           orgID,
			TakenAt:         s.clock().UTC(),
			ActiveEmployees: int(count),
		}
		for _, u := range units {
			rec := snapshot.UnitRecord{
				ID:        u.ID,
				ParentID:  u.ParentID,
				Name:      u.Name,
				Code:      u.Code,
				ManagerID: u.ManagerID,
			}
			switch u.Level {
			case orgunit.LevelDepartment:
				snap.Departments = append(snap.Departments, rec)
			case orgunit.LevelSection:
				snap.Sections = append(snap.Sections, rec)
			case orgunit.LevelCourse:
				snap.Courses = append(snap.Courses, rec)
			}
		}

		if err := s.snapshots.Create(txCtx, snap); err != nil {
			return nil, err
		}
		return snap, nil
	})
}

func (s *AuditService) GetSnapshot(ctx context.Context, id uuid.UUID) (*snapshot.Snapshot, error) {
	return inTxResult(ctx, func(txCtx context.Context) (*snapshot.Snapshot, error) {
		return s.snapshots.GetByID(txCtx, id)
	})
}

func (s *AuditService) LatestSnapshot(ctx context.Context, orgID uuid.UUID) (*snapshot.Snapshot, error) {
	return inTxResult(ctx, func(txCtx context.Context) (*snapshot.Snapshot, error) {
		return s.snapshots.Latest(txCtx, orgID)
	})
}

// CompareSnapshots is pure set difference per hierarchy level plus the
// signed head-count delta; it drives drift reports, never the committer.
func (s *AuditService) CompareSnapshots(prev, next *snapshot.Snapshot) snapshot.Diff {
	return snapshot.Compare(prev, next)
}

// inTxResult mirrors composables.InTxResult but goes through the inTxFn seam
// so service tests run without a database pool.
func inTxResult[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := inTxFn(ctx, func(txCtx context.Context) error {
		var fnErr error
		out, fnErr = fn(txCtx)
		return fnErr
	})
	return out, err
}
