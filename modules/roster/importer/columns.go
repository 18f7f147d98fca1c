package importer

import "strings"

// Canonical column names. Readers resolve whatever headers the export uses
// into these keys before rows reach the parser.
const (
	ColNumber             = "employee_number"
	ColName               = "name"
	ColKana               = "kana"
	ColEmail              = "email"
	ColPhone              = "phone"
	ColAffiliation        = "affiliation"
	ColSection            = "section"
	ColCourse             = "course"
	ColAffiliationCode    = "affiliation_code"
	ColPosition           = "position"
	ColPositionCode       = "position_code"
	ColGrade              = "grade"
	ColGradeCode          = "grade_code"
	ColEmploymentType     = "employment_type"
	ColEmploymentTypeCode = "employment_type_code"
	ColHireDate           = "hire_date"
	ColBirthDate          = "birth_date"
)

// headerSynonyms maps the header spellings seen in real roster exports to
// canonical column names. Lookup is done on the trimmed header.
var headerSynonyms = map[string]string{
	"社員番号":     ColNumber,
	"従業員番号":    ColNumber,
	"社員No":     ColNumber,
	"employee_number": ColNumber,
	"number":    ColNumber,

	"氏名":   ColName,
	"名前":   ColName,
	"name": ColName,

	"フリガナ": ColKana,
	"ふりがな": ColKana,
	"カナ":   ColKana,
	"kana": ColKana,

	"メールアドレス": ColEmail,
	"メール":     ColEmail,
	"email":   ColEmail,

	"電話番号":  ColPhone,
	"phone": ColPhone,

	"所属":          ColAffiliation,
	"所属部署":        ColAffiliation,
	"affiliation": ColAffiliation,

	"課":       ColSection,
	"section": ColSection,

	"係":      ColCourse,
	"course": ColCourse,

	"所属コード":            ColAffiliationCode,
	"affiliation_code": ColAffiliationCode,

	"役職":       ColPosition,
	"position": ColPosition,

	"役職コード":         ColPositionCode,
	"position_code": ColPositionCode,

	"資格等級":  ColGrade,
	"等級":    ColGrade,
	"grade": ColGrade,

	"資格等級コード":    ColGradeCode,
	"等級コード":      ColGradeCode,
	"grade_code": ColGradeCode,

	"雇用形態":            ColEmploymentType,
	"employment_type": ColEmploymentType,

	"雇用形態コード":              ColEmploymentTypeCode,
	"employment_type_code": ColEmploymentTypeCode,

	"入社日":       ColHireDate,
	"入社年月日":     ColHireDate,
	"hire_date": ColHireDate,

	"生年月日":       ColBirthDate,
	"birth_date": ColBirthDate,
}

// resolveHeader maps raw header cells to canonical names. Unknown headers are
// kept verbatim so unrecognized columns are carried along instead of lost.
func resolveHeader(raw []string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if canonical, ok := headerSynonyms[h]; ok {
			out[i] = canonical
		} else {
			out[i] = h
		}
	}
	return out
}

// requiredColumns must resolve from the header for a file to be importable.
var requiredColumns = []string{ColNumber, ColName, ColAffiliation}

func missingRequired(header []string) []string {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
	}
	var missing []string
	for _, req := range requiredColumns {
		if _, ok := present[req]; !ok {
			missing = append(missing, req)
		}
	}
	return missing
}
