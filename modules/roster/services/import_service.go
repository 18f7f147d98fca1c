package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/meibo/modules/roster/domain/aggregates/employee"
	"github.com/iota-uz/meibo/modules/roster/domain/entities/changelog"
	"github.com/iota-uz/meibo/modules/roster/domain/entities/orgunit"
	"github.com/iota-uz/meibo/modules/roster/importer"
	"github.com/iota-uz/meibo/pkg/eventbus"
	"github.com/iota-uz/meibo/pkg/metrics"
)

var ErrOrganizationRequired = errors.New("organization id is required")

// Unit codes are prefixes of the row's affiliation code: 3 runes for the
// department, 6 for the section, the full code for the course.
const (
	departmentCodeLen = 3
	sectionCodeLen    = 6
)

type ImportStatistics struct {
	TotalRecords       int `json:"totalRecords"`
	Created            int `json:"created"`
	Updated            int `json:"updated"`
	Skipped            int `json:"skipped"`
	Retired            int `json:"retired"`
	DepartmentsCreated int `json:"departmentsCreated"`
	SectionsCreated    int `json:"sectionsCreated"`
	CoursesCreated     int `json:"coursesCreated"`
}

type CommitResult struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	BatchID    string           `json:"batchId"`
	Statistics ImportStatistics `json:"statistics"`
}

type ImportCompletedEvent struct {
	OrgID      uuid.UUID
	BatchID    string
	Actor      string
	Statistics ImportStatistics
}

// ImportService applies an accepted batch as one durable transaction:
// cascading find-or-create of hierarchy nodes, employee upserts, set-based
// retirement of absentees, manager inference and the audit trail all commit
// together or not at all.
type ImportService struct {
	employees employee.Repository
	units     orgunit.Repository
	audit     *AuditService
	policy    *ManagerPolicy
	publisher eventbus.EventBus
	log       *logrus.Logger
	clock     func() time.Time
}

func NewImportService(
	employees employee.Repository,
	units orgunit.Repository,
	audit *AuditService,
	policy *ManagerPolicy,
	publisher eventbus.EventBus,
	log *logrus.Logger,
) *ImportService {
	if policy == nil {
		policy = DefaultManagerPolicy()
	}
	return &ImportService{
		employees: employees,
		units:     units,
		audit:     audit,
		policy:    policy,
		publisher: publisher,
		log:       log,
		clock:     time.Now,
	}
}

// Commit re-validates and applies the full processed batch. Any persistence
// error aborts the whole transaction; resubmitting the same batch is safe
// because every step is idempotent against a matching store.
func (s *ImportService) Commit(ctx context.Context, orgID uuid.UUID, actor string, batch []importer.ProcessedEmployee) (*CommitResult, error) {
	if orgID == uuid.Nil {
		return nil, ErrOrganizationRequired
	}

	batchID := s.audit.GenerateBatchID()
	stats := ImportStatistics{TotalRecords: len(batch)}

	err := inTxFn(ctx, func(txCtx context.Context) error {
		deduped, _ := Dedupe(batch)

		views, err := s.employees.GetActiveViews(txCtx, orgID)
		if err != nil {
			return errors.Wrap(err, "failed to load persisted roster")
		}
		preview := Classify(deduped, views)

		unitRefs, err := s.ensureHierarchy(txCtx, orgID, deduped, &stats)
		if err != nil {
			return err
		}

		entries := []*changelog.Entry{s.batchEntry(orgID, batchID, actor, len(deduped))}
		changesByNumber := indexChanges(preview)
		renumbered := make(map[string]struct{})

		numbers := make([]string, 0, len(deduped))
		for _, pe := range deduped {
			numbers = append(numbers, pe.Number)

			newEntries, err := s.upsertEmployee(txCtx, orgID, pe, unitRefs, changesByNumber, renumbered, batchID, actor, &stats)
			if err != nil {
				return err
			}
			entries = append(entries, newEntries...)
		}

		retired, err := s.employees.DeactivateMissing(txCtx, orgID, numbers)
		if err != nil {
			return errors.Wrap(err, "failed to retire absent employees")
		}
		stats.Retired = int(retired)
		for _, v := range preview.RetiredEmployees {
			// A number adopted through an email match is a renumbering, not a
			// retirement.
			if _, ok := renumbered[v.Number]; ok {
				continue
			}
			entries = append(entries, s.audit.entryFor(orgID, v.Number,
				changelog.ChangeTypeRetirement, "名簿から消失したため退職処理", batchID, actor))
		}

		if err := s.assignManagers(txCtx, orgID); err != nil {
			return err
		}

		return s.audit.RecordChangeLogs(txCtx, entries)
	})
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("failure").Inc()
		s.log.WithError(err).WithField("batch_id", batchID).Error("roster import failed")
		return &CommitResult{
			Success: false,
			Message: err.Error(),
			BatchID: batchID,
		}, err
	}

	metrics.ImportsTotal.WithLabelValues("success").Inc()
	metrics.ImportRowsTotal.WithLabelValues("created").Add(float64(stats.Created))
	metrics.ImportRowsTotal.WithLabelValues("updated").Add(float64(stats.Updated))
	metrics.ImportRowsTotal.WithLabelValues("skipped").Add(float64(stats.Skipped))
	metrics.ImportRowsTotal.WithLabelValues("retired").Add(float64(stats.Retired))

	s.publisher.Publish(&ImportCompletedEvent{
		OrgID:      orgID,
		BatchID:    batchID,
		Actor:      actor,
		Statistics: stats,
	})
	s.log.WithFields(logrus.Fields{
		"batch_id": batchID,
		"created":  stats.Created,
		"updated":  stats.Updated,
		"skipped":  stats.Skipped,
		"retired":  stats.Retired,
	}).Info("roster import committed")

	return &CommitResult{
		Success:    true,
		Message:    fmt.Sprintf("取込完了: 新規%d件 更新%d件 退職%d件", stats.Created, stats.Updated, stats.Retired),
		BatchID:    batchID,
		Statistics: stats,
	}, nil
}

// unitRefs resolves affiliation names to unit ids for one run.
type unitRefs struct {
	departments map[string]uuid.UUID
	sections    map[string]uuid.UUID
	courses     map[string]uuid.UUID
}

func sectionKey(dept, section string) string        { return dept + "\x00" + section }
func courseKey(dept, section, course string) string { return dept + "\x00" + section + "\x00" + course }

// ensureHierarchy find-or-creates every distinct department, section and
// course observed in the batch. Lookup by (name, parent) precedes every
// create, so replaying a batch never duplicates units.
func (s *ImportService) ensureHierarchy(ctx context.Context, orgID uuid.UUID, batch []importer.ProcessedEmployee, stats *ImportStatistics) (*unitRefs, error) {
	refs := &unitRefs{
		departments: make(map[string]uuid.UUID),
		sections:    make(map[string]uuid.UUID),
		courses:     make(map[string]uuid.UUID),
	}

	for _, pe := range batch {
		if pe.Department == "" {
			continue
		}

		deptID, ok := refs.departments[pe.Department]
		if !ok {
			unit, created, err := s.units.FindOrCreateDepartment(ctx, orgID, pe.Department, deriveUnitCode(pe.AffiliationCode, departmentCodeLen))
			if err != nil {
				return nil, errors.Wrapf(err, "failed to resolve department %q", pe.Department)
			}
			if created {
				stats.DepartmentsCreated++
			}
			deptID = unit.ID
			refs.departments[pe.Department] = deptID
		}

		if pe.Section == "" {
			continue
		}
		sKey := sectionKey(pe.Department, pe.Section)
		sectionID, ok := refs.sections[sKey]
		if !ok {
			unit, created, err := s.units.FindOrCreateSection(ctx, orgID, deptID, pe.Section, deriveUnitCode(pe.AffiliationCode, sectionCodeLen))
			if err != nil {
				return nil, errors.Wrapf(err, "failed to resolve section %q", pe.Section)
			}
			if created {
				stats.SectionsCreated++
			}
			sectionID = unit.ID
			refs.sections[sKey] = sectionID
		}

		if pe.Course == "" {
			continue
		}
		cKey := courseKey(pe.Department, pe.Section, pe.Course)
		if _, ok := refs.courses[cKey]; !ok {
			unit, created, err := s.units.FindOrCreateCourse(ctx, orgID, sectionID, pe.Course, deriveUnitCode(pe.AffiliationCode, 0))
			if err != nil {
				return nil, errors.Wrapf(err, "failed to resolve course %q", pe.Course)
			}
			if created {
				stats.CoursesCreated++
			}
			refs.courses[cKey] = unit.ID
		}
	}

	return refs, nil
}

// upsertEmployee writes one row: update (and possibly rejoin) when a match
// by number or email exists, insert otherwise. A row whose department cannot
// be resolved is counted as skipped, never an error.
func (s *ImportService) upsertEmployee(
	ctx context.Context,
	orgID uuid.UUID,
	pe importer.ProcessedEmployee,
	refs *unitRefs,
	changesByNumber map[string]classifiedChange,
	renumbered map[string]struct{},
	batchID, actor string,
	stats *ImportStatistics,
) ([]*changelog.Entry, error) {
	deptID, ok := refs.departments[pe.Department]
	if !ok {
		stats.Skipped++
		s.log.WithFields(logrus.Fields{
			"line":       pe.Line,
			"number":     pe.Number,
			"department": pe.Department,
		}).Warn("skipping row: department not resolved")
		return nil, nil
	}

	var sectionID, courseID *uuid.UUID
	if pe.Section != "" {
		if id, ok := refs.sections[sectionKey(pe.Department, pe.Section)]; ok {
			sectionID = &id
		}
	}
	if pe.Course != "" && pe.Section != "" {
		if id, ok := refs.courses[courseKey(pe.Department, pe.Section, pe.Course)]; ok {
			courseID = &id
		}
	}

	existing, err := s.employees.FindByNumber(ctx, orgID, pe.Number)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to look up employee %s", pe.Number)
	}
	if existing == nil && pe.Email != "" {
		existing, err = s.employees.FindByEmail(ctx, orgID, pe.Email)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to look up employee by email %s", pe.Email)
		}
	}

	if existing == nil {
		e := &employee.Employee{
			ID:     uuid.New(),
			OrgID:  orgID,
			Number: pe.Number,
			Active: true,
		}
		applyRow(e, pe, deptID, sectionID, courseID)
		if err := s.employees.Create(ctx, e); err != nil {
			return nil, errors.Wrapf(err, "failed to create employee %s", pe.Number)
		}
		stats.Created++
		return []*changelog.Entry{
			s.audit.entryFor(orgID, pe.Number, changelog.ChangeTypeCreate, "新規登録: "+pe.Name, batchID, actor),
		}, nil
	}

	if existing.Number != pe.Number {
		renumbered[existing.Number] = struct{}{}
	}
	rejoined := !existing.Active
	existing.Active = true
	applyRow(existing, pe, deptID, sectionID, courseID)
	if err := s.employees.Update(ctx, existing); err != nil {
		return nil, errors.Wrapf(err, "failed to update employee %s", pe.Number)
	}
	stats.Updated++

	var entries []*changelog.Entry
	if rejoined {
		entries = append(entries, s.audit.entryFor(orgID, pe.Number, changelog.ChangeTypeRejoining, "再入社: "+pe.Name, batchID, actor))
	}
	if cc, ok := changesByNumber[pe.Number]; ok {
		entries = append(entries, s.audit.EntriesFromFieldChanges(orgID, pe.Number, cc.changeType, cc.changes, batchID, actor)...)
	}
	return entries, nil
}

// assignManagers re-derives every unit's manager from active employees'
// titles through the keyword policy. Heuristic only: the first match wins.
func (s *ImportService) assignManagers(ctx context.Context, orgID uuid.UUID) error {
	units, err := s.units.ListByOrg(ctx, orgID)
	if err != nil {
		return errors.Wrap(err, "failed to list units for manager assignment")
	}
	for _, u := range units {
		emps, err := s.employees.ListActiveByUnit(ctx, u.Level, u.ID)
		if err != nil {
			return errors.Wrapf(err, "failed to list employees of %s %q", u.Level, u.Name)
		}
		titles := make([]string, len(emps))
		for i, e := range emps {
			titles[i] = e.Position
		}
		idx := s.policy.PickManager(u.Level, titles)
		if idx < 0 {
			continue
		}
		if u.ManagerID != nil && *u.ManagerID == emps[idx].ID {
			continue
		}
		if err := s.units.SetManager(ctx, u.ID, emps[idx].ID); err != nil {
			return errors.Wrapf(err, "failed to set manager of %s %q", u.Level, u.Name)
		}
	}
	return nil
}

func (s *ImportService) batchEntry(orgID uuid.UUID, batchID, actor string, total int) *changelog.Entry {
	entry := s.audit.entryFor(orgID, "", changelog.ChangeTypeImport,
		fmt.Sprintf("名簿一括取込 (%d件)", total), batchID, actor)
	entry.EntityType = "import_batch"
	entry.EntityID = batchID
	return entry
}

type classifiedChange struct {
	changeType changelog.ChangeType
	changes    []FieldChange
}

func indexChanges(preview *PreviewResult) map[string]classifiedChange {
	out := make(map[string]classifiedChange, len(preview.UpdatedEmployees)+len(preview.TransferredEmployees))
	for _, u := range preview.UpdatedEmployees {
		out[u.Incoming.Number] = classifiedChange{changeType: changelog.ChangeTypeUpdate, changes: u.Changes}
	}
	for _, tr := range preview.TransferredEmployees {
		out[tr.Incoming.Number] = classifiedChange{changeType: changelog.ChangeTypeTransfer, changes: tr.Changes}
	}
	return out
}

func applyRow(e *employee.Employee, pe importer.ProcessedEmployee, deptID uuid.UUID, sectionID, courseID *uuid.UUID) {
	// Matching by email adopts the row's number, so renumbered employees
	// survive the absentee sweep.
	e.Number = pe.Number
	e.Name = pe.Name
	e.Kana = pe.Kana
	e.Email = pe.Email
	e.Phone = pe.Phone
	e.Position = pe.Position
	e.PositionCode = pe.PositionCode
	e.Grade = pe.Grade
	e.GradeCode = pe.GradeCode
	e.EmploymentType = pe.EmploymentType
	e.EmploymentTypeCode = pe.EmploymentTypeCode
	if pe.HireDate != nil {
		e.HireDate = pe.HireDate
	}
	if pe.BirthDate != nil {
		e.BirthDate = pe.BirthDate
	}
	e.DepartmentID = deptID
	e.SectionID = sectionID
	e.CourseID = courseID
}

// deriveUnitCode cuts a prefix of the affiliation code; length 0 keeps the
// whole code. Codes shorter than the requested prefix are used as-is.
func deriveUnitCode(affiliationCode string, length int) string {
	code := strings.TrimSpace(affiliationCode)
	if length <= 0 {
		return code
	}
	r := []rune(code)
	if len(r) <= length {
		return code
	}
	return string(r[:length])
}
