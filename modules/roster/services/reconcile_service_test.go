package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/meibo/modules/roster/domain/aggregates/employee"
	"github.com/iota-uz/meibo/modules/roster/importer"
)

func incomingRow(number, name, dept, section string) importer.ProcessedEmployee {
	return importer.ProcessedEmployee{
		Number:     number,
		Name:       name,
		Department: dept,
		Section:    section,
		Position:   importer.DefaultPosition,
	}
}

func persistedView(number, name, deptName, sectionName string) *employee.View {
	return &employee.View{
		Employee: employee.Employee{
			ID:       uuid.New(),
			Number:   number,
			Name:     name,
			Position: importer.DefaultPosition,
			Active:   true,
		},
		DepartmentName: deptName,
		SectionName:    sectionName,
	}
}

func TestClassify_Partition(t *testing.T) {
	batch := []importer.ProcessedEmployee{
		incomingRow("1001", "山田 太郎", "営業部", "一課"),  // unchanged
		incomingRow("1002", "佐藤 花子", "営業部", "二課"),  // transferred
		incomingRow("1003", "田中 次郎", "総務部", ""),     // updated (name differs)
		incomingRow("1004", "鈴木 四郎", "開発部", ""),     // new
	}
	batch[2].Name = "田中 治郎"

	existing := []*employee.View{
		persistedView("1001", "山田 太郎", "営業部", "一課"),
		persistedView("1002", "佐藤 花子", "営業部", "一課"),
		persistedView("1003", "田中 次郎", "総務部", ""),
		persistedView("1005", "高橋 五郎", "経理部", ""), // retired
	}

	result := Classify(batch, existing)

	require.Len(t, result.NewEmployees, 1)
	require.Equal(t, "1004", result.NewEmployees[0].Number)

	require.Len(t, result.UpdatedEmployees, 1)
	require.Equal(t, "1003", result.UpdatedEmployees[0].Incoming.Number)

	require.Len(t, result.TransferredEmployees, 1)
	require.Equal(t, "1002", result.TransferredEmployees[0].Incoming.Number)

	require.Len(t, result.RetiredEmployees, 1)
	require.Equal(t, "1005", result.RetiredEmployees[0].Number)

	require.Empty(t, result.ExcludedDuplicates)
}

func TestClassify_TransferOutranksUpdate(t *testing.T) {
	// Both the name and the section change; the hierarchy difference decides
	// the classification.
	pe := incomingRow("1001", "山田 太朗", "営業部", "二課")
	existing := []*employee.View{persistedView("1001", "山田 太郎", "営業部", "一課")}

	result := Classify([]importer.ProcessedEmployee{pe}, existing)

	require.Empty(t, result.UpdatedEmployees)
	require.Len(t, result.TransferredEmployees, 1)

	tr := result.TransferredEmployees[0]
	require.Equal(t, "営業部 一課", tr.OldUnit)
	require.Equal(t, "営業部 二課", tr.NewUnit)

	// The full change list still carries the name change for the audit trail.
	fields := make([]string, 0, len(tr.Changes))
	for _, c := range tr.Changes {
		fields = append(fields, c.Field)
	}
	require.Contains(t, fields, "name")
	require.Contains(t, fields, "section")
}

func TestClassify_RetireesIgnoreFieldValues(t *testing.T) {
	// Retirement is pure number-set subtraction even when the absent
	// employee's fields would have matched an incoming row.
	existing := []*employee.View{persistedView("1001", "山田 太郎", "営業部", "")}
	batch := []importer.ProcessedEmployee{incomingRow("2001", "山田 太郎", "営業部", "")}

	result := Classify(batch, existing)

	require.Len(t, result.RetiredEmployees, 1)
	require.Equal(t, "1001", result.RetiredEmployees[0].Number)
	require.Len(t, result.NewEmployees, 1)
}

func TestClassify_Idempotent(t *testing.T) {
	batch := []importer.ProcessedEmployee{
		incomingRow("1001", "山田 太郎", "営業部", "一課"),
		incomingRow("1002", "佐藤 花子", "総務部", ""),
	}
	existing := []*employee.View{persistedView("1001", "山田 太郎", "営業部", "二課")}

	first := Classify(batch, existing)
	second := Classify(batch, existing)
	require.Equal(t, first, second)
}

func TestDedupe_NumberCollision(t *testing.T) {
	first := incomingRow("1001", "山田 太郎", "営業部", "")
	second := incomingRow("1001", "山田 太郎", "総務部", "")

	kept, duplicates := Dedupe([]importer.ProcessedEmployee{first, second})

	require.Len(t, kept, 1)
	require.Equal(t, "営業部", kept[0].Department, "first occurrence wins")
	require.Len(t, duplicates, 1)
	require.Equal(t, "1001", duplicates[0].RetainedNumber)
}

func TestDedupe_EmailFallback(t *testing.T) {
	first := incomingRow("1001", "山田 太郎", "営業部", "")
	first.Email = "yamada@example.co.jp"
	second := incomingRow("1002", "山田 太朗", "総務部", "")
	second.Email = "yamada@example.co.jp"

	kept, duplicates := Dedupe([]importer.ProcessedEmployee{first, second})

	require.Len(t, kept, 1)
	require.Equal(t, "1001", kept[0].Number)
	require.Len(t, duplicates, 1)
	require.Equal(t, "1001", duplicates[0].RetainedNumber)
	require.Contains(t, duplicates[0].Reason, "yamada@example.co.jp")
}

func TestDedupe_NameKanaFallback(t *testing.T) {
	first := incomingRow("1001", "山田 太郎", "営業部", "")
	first.Kana = "ヤマダ タロウ"
	second := incomingRow("1002", "山田 太郎", "総務部", "")
	second.Kana = "ヤマダ タロウ"

	kept, duplicates := Dedupe([]importer.ProcessedEmployee{first, second})

	require.Len(t, kept, 1)
	require.Len(t, duplicates, 1)
}

func TestDedupe_NoKanaNoFallback(t *testing.T) {
	// Without kana, a shared name alone is not an identity collision.
	first := incomingRow("1001", "山田 太郎", "営業部", "")
	second := incomingRow("1002", "山田 太郎", "総務部", "")

	kept, duplicates := Dedupe([]importer.ProcessedEmployee{first, second})

	require.Len(t, kept, 2)
	require.Empty(t, duplicates)
}

func TestCompareFields_EmptyEquivalence(t *testing.T) {
	pe := incomingRow("1001", "山田 太郎", "営業部", "")
	pe.Phone = "  "
	view := persistedView("1001", "山田 太郎", "営業部", "")

	changes, transferred := CompareFields(pe, view)
	require.Empty(t, changes)
	require.False(t, transferred)
}

func TestPreview_ReadsActiveViews(t *testing.T) {
	box := newStateBox()
	useMemTx(t, box)

	orgID := uuid.New()
	units := &memUnitRepo{box: box}
	dept, _, err := units.FindOrCreateDepartment(context.Background(), orgID, "営業部", "100")
	require.NoError(t, err)

	employees := &memEmployeeRepo{box: box}
	require.NoError(t, employees.Create(context.Background(), &employee.Employee{
		ID:           uuid.New(),
		OrgID:        orgID,
		Number:       "1001",
		Name:         "山田 太郎",
		Position:     importer.DefaultPosition,
		Active:       true,
		DepartmentID: dept.ID,
	}))

	svc := NewReconcileService(employees)
	result, err := svc.Preview(context.Background(), orgID, []importer.ProcessedEmployee{
		incomingRow("1002", "佐藤 花子", "総務部", ""),
	})
	require.NoError(t, err)

	require.Len(t, result.NewEmployees, 1)
	require.Len(t, result.RetiredEmployees, 1)
	require.Equal(t, "1001", result.RetiredEmployees[0].Number)
}
