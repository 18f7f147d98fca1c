package importer

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// ReadRoster loads one roster export. Workbooks are routed by extension;
// everything else is treated as delimited text.
func ReadRoster(path string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadWorkbook(path)
	default:
		return ReadCSV(path)
	}
}

// ReadCSV reads a delimited roster file. UTF-8 (with or without BOM) and
// Shift_JIS are accepted; the encoding is sniffed from the file content.
func ReadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	raw = stripUTF8BOM(raw)

	if !utf8.Valid(raw) {
		decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), raw)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode roster file as Shift_JIS")
		}
		raw = decoded
	}

	r := csv.NewReader(strings.NewReader(string(raw)))
	r.FieldsPerRecord = -1

	rawHeader, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("missing header")
		}
		return nil, err
	}
	header := resolveHeader(rawHeader)
	if missing := missingRequired(header); len(missing) > 0 {
		return nil, errors.Errorf("missing required header columns: %s", strings.Join(missing, ", "))
	}

	var rows []Row
	line := 1
	for {
		line++
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if isBlankRecord(rec) {
			continue
		}
		rows = append(rows, makeRow(line, header, rec))
	}
	return rows, nil
}

// ReadWorkbook reads the first sheet of an Excel workbook.
func ReadWorkbook(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("missing header")
	}

	header := resolveHeader(records[0])
	if missing := missingRequired(header); len(missing) > 0 {
		return nil, errors.Errorf("missing required header columns: %s", strings.Join(missing, ", "))
	}

	var rows []Row
	for i, rec := range records[1:] {
		if isBlankRecord(rec) {
			continue
		}
		rows = append(rows, makeRow(i+2, header, rec))
	}
	return rows, nil
}

func makeRow(line int, header, rec []string) Row {
	cells := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(rec) {
			cells[col] = rec[i]
		}
	}
	return Row{Line: line, Cells: cells}
}

func isBlankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func stripUTF8BOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}
