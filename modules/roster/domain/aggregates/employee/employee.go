package employee

import (
	"time"

	"github.com/google/uuid"
)

// Employee is the persisted roster record. Number is the stable
// business-assigned identifier used to match incoming rows across runs; ID is
// the internal surrogate key. Employees are never deleted, only deactivated.
type Employee struct {
	ID                 uuid.UUID
	OrgID              uuid.UUID
	Number             string
	Name               string
	Kana               string
	Email              string
	Phone              string
	Position           string
	PositionCode       string
	Grade              string
	GradeCode          string
	EmploymentType     string
	EmploymentTypeCode string
	HireDate           *time.Time
	BirthDate          *time.Time
	Active             bool
	DepartmentID       uuid.UUID
	SectionID          *uuid.UUID
	CourseID           *uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// View is the read model handed to the reconciler: the employee plus its
// resolved unit names, so classification never chases unit references.
type View struct {
	Employee
	DepartmentName string
	SectionName    string
	CourseName     string
}

// UnitLabel renders the most specific affiliation for change descriptions,
// e.g. "営業部 一課".
func (v *View) UnitLabel() string {
	label := v.DepartmentName
	if v.SectionName != "" {
		label += " " + v.SectionName
	}
	if v.CourseName != "" {
		label += " " + v.CourseName
	}
	return label
}
