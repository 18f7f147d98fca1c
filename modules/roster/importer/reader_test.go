package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestReadCSV_UTF8WithBOM(t *testing.T) {
	content := "\xEF\xBB\xBF社員番号,氏名,所属,役職\n1001,山田 太郎,営業部 一課,課長\n,,,\n1002,佐藤 花子,総務部,\n"
	path := writeTempFile(t, "roster.csv", []byte(content))

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 2, "blank record is skipped")

	require.Equal(t, 2, rows[0].Line)
	require.Equal(t, "1001", rows[0].Cells[ColNumber])
	require.Equal(t, "山田 太郎", rows[0].Cells[ColName])
	require.Equal(t, "営業部 一課", rows[0].Cells[ColAffiliation])
	require.Equal(t, "課長", rows[0].Cells[ColPosition])

	require.Equal(t, 4, rows[1].Line)
	require.Equal(t, "1002", rows[1].Cells[ColNumber])
}

func TestReadCSV_ShiftJIS(t *testing.T) {
	utf8Content := "社員番号,氏名,所属\n2001,田中 次郎,経理部\n"
	encoded, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(utf8Content))
	require.NoError(t, err)
	path := writeTempFile(t, "sjis.csv", encoded)

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "田中 次郎", rows[0].Cells[ColName])
	require.Equal(t, "経理部", rows[0].Cells[ColAffiliation])
}

func TestReadCSV_MissingRequiredHeader(t *testing.T) {
	path := writeTempFile(t, "bad.csv", []byte("氏名,役職\n山田,課長\n"))

	_, err := ReadCSV(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing required header columns")
}

func TestReadCSV_RaggedRecordsTolerated(t *testing.T) {
	path := writeTempFile(t, "ragged.csv", []byte("社員番号,氏名,所属,メール\n3001,山本 三郎,開発部\n"))

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "", rows[0].Cells[ColEmail])
}
