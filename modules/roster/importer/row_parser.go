package importer

import (
	"strings"
	"time"

	"github.com/iota-uz/meibo/pkg/jptext"
)

// DefaultPosition is assigned when the export leaves the position blank.
const DefaultPosition = "一般"

// Row is one raw tabular record: line number plus cells keyed by canonical
// column name.
type Row struct {
	Line  int
	Cells map[string]string
}

// RowError is a row-level, non-fatal problem. The rest of the batch is still
// processed.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Affiliation is the decomposed three-level hierarchy reference of one row.
type Affiliation struct {
	Department string
	Section    string
	Course     string
}

// ProcessedEmployee is the run-scoped canonical form of one input row. It is
// never persisted; the committer maps it onto Employee rows.
type ProcessedEmployee struct {
	Line int

	Number string
	Name   string
	Kana   string
	Email  string
	Phone  string

	Department      string
	Section         string
	Course          string
	AffiliationCode string

	Position           string
	PositionCode       string
	Grade              string
	GradeCode          string
	EmploymentType     string
	EmploymentTypeCode string

	HireDate  *time.Time
	BirthDate *time.Time
}

// ParseAffiliation splits a free-text affiliation on runs of whitespace
// (full-width U+3000 included). The decomposition is positional: token 1 is
// the department, token 2 the section, tokens 3+ form the course name. A
// single token yields a department with no section or course.
func ParseAffiliation(text string) Affiliation {
	tokens := strings.Fields(strings.Map(func(r rune) rune {
		if r == '　' {
			return ' '
		}
		return r
	}, text))

	var a Affiliation
	if len(tokens) > 0 {
		a.Department = tokens[0]
	}
	if len(tokens) > 1 {
		a.Section = tokens[1]
	}
	if len(tokens) > 2 {
		a.Course = strings.Join(tokens[2:], " ")
	}
	return a
}

type Parser struct {
	defaultPosition string
}

func NewParser(defaultPosition string) *Parser {
	if defaultPosition == "" {
		defaultPosition = DefaultPosition
	}
	return &Parser{defaultPosition: defaultPosition}
}

// ProcessRow turns a raw row into its canonical form. Rows missing the
// employee number, name or affiliation are filtered (false), not errors.
// Explicit section/course columns override the positional decomposition.
func (p *Parser) ProcessRow(row Row) (ProcessedEmployee, bool) {
	get := func(col string) string {
		return strings.TrimSpace(row.Cells[col])
	}

	number := get(ColNumber)
	name := jptext.NormalizeSpace(get(ColName))
	affiliationText := get(ColAffiliation)
	if number == "" || name == "" || affiliationText == "" {
		return ProcessedEmployee{}, false
	}

	aff := ParseAffiliation(affiliationText)
	if v := get(ColSection); v != "" {
		aff.Section = v
	}
	if v := get(ColCourse); v != "" {
		aff.Course = v
	}

	position := get(ColPosition)
	if position == "" {
		position = p.defaultPosition
	}

	pe := ProcessedEmployee{
		Line:               row.Line,
		Number:             number,
		Name:               name,
		Kana:               jptext.ToFullWidthKana(get(ColKana)),
		Email:              strings.ToLower(get(ColEmail)),
		Phone:              get(ColPhone),
		Department:         aff.Department,
		Section:            aff.Section,
		Course:             aff.Course,
		AffiliationCode:    get(ColAffiliationCode),
		Position:           position,
		PositionCode:       get(ColPositionCode),
		Grade:              get(ColGrade),
		GradeCode:          get(ColGradeCode),
		EmploymentType:     get(ColEmploymentType),
		EmploymentTypeCode: get(ColEmploymentTypeCode),
	}

	if d, ok := jptext.ParseDate(get(ColHireDate)); ok {
		pe.HireDate = &d
	}
	if d, ok := jptext.ParseDate(get(ColBirthDate)); ok {
		pe.BirthDate = &d
	}

	return pe, true
}

// ProcessRows filters and normalizes a whole file worth of rows.
func (p *Parser) ProcessRows(rows []Row) []ProcessedEmployee {
	out, _ := p.ProcessAll(rows)
	return out
}

// ProcessAll is ProcessRows plus a report of the lines that were filtered
// for missing required fields.
func (p *Parser) ProcessAll(rows []Row) ([]ProcessedEmployee, []RowError) {
	out := make([]ProcessedEmployee, 0, len(rows))
	var rowErrs []RowError
	for _, row := range rows {
		pe, ok := p.ProcessRow(row)
		if !ok {
			rowErrs = append(rowErrs, RowError{
				Line:    row.Line,
				Message: "社員番号・氏名・所属のいずれかが未入力",
			})
			continue
		}
		out = append(out, pe)
	}
	return out, rowErrs
}
