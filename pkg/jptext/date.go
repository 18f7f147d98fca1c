package jptext

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Spreadsheet serial dates count days from 1899-12-30 (the Lotus/Excel
// convention). Only 5-digit numbers are treated as serials, and only while
// they land in 1900..2100; shorter numbers (a bare year typed into a date
// column) and anything outside the window are rejected instead of silently
// misread.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const (
	serialMinYear = 1900
	serialMaxYear = 2100
)

// eraOffsets maps an era initial to the value added to the era year to get
// the Gregorian year (Reiwa 1 = 2019, Heisei 1 = 1989, Showa 1 = 1926).
var eraOffsets = map[string]int{
	"R": 2018,
	"H": 1988,
	"S": 1925,
}

var (
	serialRe    = regexp.MustCompile(`^\d{5}$`)
	eraRe       = regexp.MustCompile(`^([RHS])(\d{1,2})\.(\d{1,2})\.(\d{1,2})$`)
	kanjiRe     = regexp.MustCompile(`^(\d{4})年(\d{1,2})月(\d{1,2})日$`)
	gregorianRe = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})[/-](\d{1,2})$`)
)

// ParseDate converts a raw roster cell into a calendar date. Accepted forms,
// tried in order: spreadsheet serial, era notation (R5.4.1), 2023年4月1日,
// YYYY/M/D, YYYY-M-D. Blank or unrecognized input reports absent rather than
// an error so one bad cell never aborts a row.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if serialRe.MatchString(s) {
		n, err := strconv.Atoi(s)
		if err == nil {
			d := serialEpoch.AddDate(0, 0, n)
			if d.Year() >= serialMinYear && d.Year() <= serialMaxYear {
				return d, true
			}
		}
		return time.Time{}, false
	}

	if m := eraRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[2])
		month, _ := strconv.Atoi(m[3])
		day, _ := strconv.Atoi(m[4])
		return makeDate(year+eraOffsets[m[1]], month, day)
	}

	if m := kanjiRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return makeDate(year, month, day)
	}

	if m := gregorianRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return makeDate(year, month, day)
	}

	return time.Time{}, false
}

func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); treat that as invalid.
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
