package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iota-uz/meibo/modules/roster/domain/aggregates/employee"
	"github.com/iota-uz/meibo/modules/roster/importer"
	"github.com/iota-uz/meibo/pkg/composables"
	"github.com/iota-uz/meibo/pkg/metrics"
)

// inTxFn is the transaction seam; tests substitute a passthrough.
var inTxFn = defaultInTx

func defaultInTx(ctx context.Context, fn func(context.Context) error) error {
	return composables.InTx(ctx, fn)
}

// FieldChange is one field-level difference between persisted and incoming
// state, in comparable-field order.
type FieldChange struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

type UpdatedEmployee struct {
	Incoming importer.ProcessedEmployee
	Existing *employee.View
	Changes  []FieldChange
}

type TransferredEmployee struct {
	Incoming importer.ProcessedEmployee
	Existing *employee.View
	OldUnit  string
	NewUnit  string
	// Changes carries every differing field, hierarchy included, so the
	// audit trail stays complete even though the headline is the transfer.
	Changes []FieldChange
}

type DuplicateRow struct {
	Excluded       importer.ProcessedEmployee
	RetainedNumber string
	Reason         string
}

// PreviewResult is the zero-side-effect classification of one batch against
// persisted state, rendered to an operator before anything is written.
type PreviewResult struct {
	NewEmployees         []importer.ProcessedEmployee
	UpdatedEmployees     []UpdatedEmployee
	TransferredEmployees []TransferredEmployee
	RetiredEmployees     []*employee.View
	ExcludedDuplicates   []DuplicateRow
	Errors               []importer.RowError
}

type ReconcileService struct {
	employees employee.Repository
}

func NewReconcileService(employees employee.Repository) *ReconcileService {
	return &ReconcileService{employees: employees}
}

// Preview classifies the batch without writing anything. It is idempotent:
// the same batch against the same store always yields the same result.
func (s *ReconcileService) Preview(ctx context.Context, orgID uuid.UUID, batch []importer.ProcessedEmployee) (*PreviewResult, error) {
	var views []*employee.View
	err := inTxFn(ctx, func(txCtx context.Context) error {
		var repoErr error
		views, repoErr = s.employees.GetActiveViews(txCtx, orgID)
		return repoErr
	})
	if err != nil {
		return nil, err
	}

	result := Classify(batch, views)
	metrics.PreviewsTotal.Inc()
	return result, nil
}

// Classify is the pure reconciliation algorithm. Every incoming row ends up
// in exactly one of {new, updated, transferred, unchanged, duplicate}; every
// persisted active employee in exactly one of {updated, transferred,
// unchanged, retired}.
func Classify(batch []importer.ProcessedEmployee, existing []*employee.View) *PreviewResult {
	result := &PreviewResult{}

	deduped, duplicates := Dedupe(batch)
	result.ExcludedDuplicates = duplicates

	byNumber := make(map[string]*employee.View, len(existing))
	for _, v := range existing {
		byNumber[v.Number] = v
	}

	incomingNumbers := make(map[string]struct{}, len(deduped))
	for _, pe := range deduped {
		incomingNumbers[pe.Number] = struct{}{}

		view, ok := byNumber[pe.Number]
		if !ok {
			result.NewEmployees = append(result.NewEmployees, pe)
			continue
		}

		changes, transferred := CompareFields(pe, view)
		switch {
		case transferred:
			result.TransferredEmployees = append(result.TransferredEmployees, TransferredEmployee{
				Incoming: pe,
				Existing: view,
				OldUnit:  view.UnitLabel(),
				NewUnit:  incomingUnitLabel(pe),
				Changes:  changes,
			})
		case len(changes) > 0:
			result.UpdatedEmployees = append(result.UpdatedEmployees, UpdatedEmployee{
				Incoming: pe,
				Existing: view,
				Changes:  changes,
			})
		}
		// No differences: unchanged, reported nowhere.
	}

	// Retirees are pure set subtraction over active numbers; field values
	// play no part.
	for _, v := range existing {
		if _, ok := incomingNumbers[v.Number]; !ok {
			result.RetiredEmployees = append(result.RetiredEmployees, v)
		}
	}

	return result
}

// Dedupe resolves conflicting identities inside one batch. The stable number
// is authoritative; email and name+kana are fallback identity keys. The
// first occurrence wins and later conflicting rows are excluded with the
// retained number recorded.
func Dedupe(batch []importer.ProcessedEmployee) ([]importer.ProcessedEmployee, []DuplicateRow) {
	kept := make([]importer.ProcessedEmployee, 0, len(batch))
	var duplicates []DuplicateRow

	byNumber := make(map[string]string, len(batch))
	byEmail := make(map[string]string, len(batch))
	byNameKana := make(map[string]string, len(batch))

	for _, pe := range batch {
		if retained, ok := byNumber[pe.Number]; ok {
			duplicates = append(duplicates, DuplicateRow{
				Excluded:       pe,
				RetainedNumber: retained,
				Reason:         fmt.Sprintf("employee number %s appears more than once", pe.Number),
			})
			continue
		}
		if pe.Email != "" {
			if retained, ok := byEmail[pe.Email]; ok && retained != pe.Number {
				duplicates = append(duplicates, DuplicateRow{
					Excluded:       pe,
					RetainedNumber: retained,
					Reason:         fmt.Sprintf("email %s already used by employee %s", pe.Email, retained),
				})
				continue
			}
		}
		nameKey := pe.Name + "|" + pe.Kana
		if pe.Kana != "" {
			if retained, ok := byNameKana[nameKey]; ok && retained != pe.Number {
				duplicates = append(duplicates, DuplicateRow{
					Excluded:       pe,
					RetainedNumber: retained,
					Reason:         fmt.Sprintf("name and kana already used by employee %s", retained),
				})
				continue
			}
		}

		byNumber[pe.Number] = pe.Number
		if pe.Email != "" {
			byEmail[pe.Email] = pe.Number
		}
		if pe.Kana != "" {
			byNameKana[nameKey] = pe.Number
		}
		kept = append(kept, pe)
	}

	return kept, duplicates
}

type comparableField struct {
	field     string
	label     string
	hierarchy bool
	incoming  func(importer.ProcessedEmployee) string
	existing  func(*employee.View) string
}

var comparableFields = []comparableField{
	{field: "name", label: "氏名",
		incoming: func(pe importer.ProcessedEmployee) string { return pe.Name },
		existing: func(v *employee.View) string { return v.Name }},
	{field: "kana", label: "フリガナ",
		incoming: func(pe importer.ProcessedEmployee) string { return pe.Kana },
		existing: func(v *employee.View) string { return v.Kana }},
	{field: "email", label: "メールアドレス",
		incoming: func(pe importer.ProcessedEmployee) string { return pe.Email },
		existing: func(v *employee.View) string { return v.Email }},
	{field: "phone", label: "電話番号",
		incoming: func(pe importer.ProcessedEmployee) string { return pe.Phone },
		existing: func(v *employee.View) string { return v.Phone }},
	{field: "position", label: "役職",
		incoming: func(pe importer.ProcessedEmployee) string { return pe.Position },
		existing: func(v *employee.View) string { return v.Position }},
	{field: "position_code", label: "役職コード",
		incoming: func(pe importer.ProcessedEmployee) string { return pe.PositionCode },
		existing: func(v *employee.View) string { return v.PositionCode }},
	{field: "grade", label: "資格等級",
		incoming: func(pe importer.ProcessedEmployee) string { return pe.Grade },
		existing: func(v *employee.View) string { return v.Grade }},
	{field: "grade_code", label: "資格等級コード",
		incoming: func(pe importer.ProcessedEmployee) string { return pe.GradeCode },
		existing: func(v *employee.View) string { return v.GradeCode }},
	{field: "employment_type", label: "雇用形態",
		incoming: func(pe importer.ProcessedEmployee) string { return pe.EmploymentType },
		existing: func(v *employee.View) string { return v.EmploymentType }},
	{field: "employment_type_code", label: "雇用形態コード",
		incoming: func(pe importer.ProcessedEmployee) string { return pe.EmploymentTypeCode },
		existing: func(v *employee.View) string { return v.EmploymentTypeCode }},
	{field: "department", label: "部署", hierarchy: true,
		incoming: func(pe importer.ProcessedEmployee) string { return pe.Department },
		existing: func(v *employee.View) string { return v.DepartmentName }},
	{field: "section", label: "課", hierarchy: true,
		incoming: func(pe importer.ProcessedEmployee) string { return pe.Section },
		existing: func(v *employee.View) string { return v.SectionName }},
	{field: "course", label: "係", hierarchy: true,
		incoming: func(pe importer.ProcessedEmployee) string { return pe.Course },
		existing: func(v *employee.View) string { return v.CourseName }},
}

// CompareFields diffs one incoming record against the persisted view over
// the fixed comparable-field set. It returns the ordered change list and
// whether any hierarchy reference differs (a transfer, which outranks a
// plain update).
func CompareFields(pe importer.ProcessedEmployee, view *employee.View) ([]FieldChange, bool) {
	var changes []FieldChange
	transferred := false
	for _, f := range comparableFields {
		oldVal := normalizeValue(f.existing(view))
		newVal := normalizeValue(f.incoming(pe))
		if oldVal == newVal {
			continue
		}
		if f.hierarchy {
			transferred = true
		}
		changes = append(changes, FieldChange{
			Field: f.field,
			Label: f.label,
			Old:   oldVal,
			New:   newVal,
		})
	}
	return changes, transferred
}

// normalizeValue collapses the empty-ish representations into one absent
// sentinel before comparison, so "" and untracked fields never register as
// changes against each other.
func normalizeValue(v string) string {
	return strings.TrimSpace(v)
}

func incomingUnitLabel(pe importer.ProcessedEmployee) string {
	label := pe.Department
	if pe.Section != "" {
		label += " " + pe.Section
	}
	if pe.Course != "" {
		label += " " + pe.Course
	}
	return label
}
