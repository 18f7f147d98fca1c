package jptext

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate_Era(t *testing.T) {
	d, ok := ParseDate("R5.4.1")
	require.True(t, ok)
	require.Equal(t, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), d)

	d, ok = ParseDate("H31.4.30")
	require.True(t, ok)
	require.Equal(t, time.Date(2019, 4, 30, 0, 0, 0, 0, time.UTC), d)

	d, ok = ParseDate("S64.1.7")
	require.True(t, ok)
	require.Equal(t, time.Date(1989, 1, 7, 0, 0, 0, 0, time.UTC), d)
}

func TestParseDate_SpreadsheetSerial(t *testing.T) {
	d, ok := ParseDate("35065")
	require.True(t, ok)
	require.Equal(t, serialEpoch.AddDate(0, 0, 35065), d)
	require.Equal(t, time.Date(1996, 1, 1, 0, 0, 0, 0, time.UTC), d)

	// Only 5-digit numbers are serial candidates. A bare year typed into a
	// date column must stay absent, not turn into an early-1900s date.
	for _, raw := range []string{"1", "1985", "2023", "100000", "999999"} {
		_, ok = ParseDate(raw)
		require.False(t, ok, "input %q should be absent", raw)
	}

	// 5-digit serial past the 2100 window cap is rejected.
	_, ok = ParseDate("99999")
	require.False(t, ok)
}

func TestParseDate_KanjiAndGregorian(t *testing.T) {
	d, ok := ParseDate("2023年4月1日")
	require.True(t, ok)
	require.Equal(t, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), d)

	d, ok = ParseDate("2023/4/1")
	require.True(t, ok)
	require.Equal(t, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), d)

	d, ok = ParseDate("2023-04-01")
	require.True(t, ok)
	require.Equal(t, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), d)
}

func TestParseDate_Absent(t *testing.T) {
	for _, raw := range []string{"", "   ", "not a date", "2023年13月1日", "2023/2/30", "X5.4.1"} {
		_, ok := ParseDate(raw)
		require.False(t, ok, "input %q should be absent", raw)
	}
}

func TestToFullWidthKana(t *testing.T) {
	require.Equal(t, "ガイド", ToFullWidthKana("ｶﾞｲﾄﾞ"))
	require.Equal(t, "パピプペポ", ToFullWidthKana("ﾊﾟﾋﾟﾌﾟﾍﾟﾎﾟ"))
	require.Equal(t, "ヴァイオリン", ToFullWidthKana("ｳﾞｧｲｵﾘﾝ"))
	require.Equal(t, "タナカ・タロウ", ToFullWidthKana("ﾀﾅｶ･ﾀﾛｳ"))
	// Already full-width input is untouched.
	require.Equal(t, "スズキ", ToFullWidthKana("スズキ"))
	// Non-kana passes through.
	require.Equal(t, "abc 123", ToFullWidthKana("abc 123"))
}

func TestNormalizeSpace(t *testing.T) {
	require.Equal(t, "営業部 一課", NormalizeSpace("  営業部　一課 "))
	require.Equal(t, "a b c", NormalizeSpace("a\t b　　c"))
	require.Equal(t, "", NormalizeSpace("　 　"))
}
