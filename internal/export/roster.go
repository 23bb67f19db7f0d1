// Package export renders activity rosters as downloadable spreadsheets.
package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/activity-portal-api/internal/repository"
)

// Format is a roster file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned by ParseFormat for anything but csv or xlsx.
var ErrUnsupportedFormat = errors.New("unsupported export format")

const timeLayout = "2006-01-02 15:04:05"

// RosterHeader is the first row of every roster export.
var RosterHeader = []string{"序号", "姓名", "学号", "年级", "专业", "学院", "手机号", "QQ号", "报名时间", "状态"}

// ParseFormat accepts csv and xlsx, case-insensitively. Empty input means csv.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

// ContentType is the MIME type served with the file.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Roster renders entries in the given format. Register times are printed in loc.
func Roster(format Format, entries []repository.RosterEntry, loc *time.Location) ([]byte, error) {
	records := rosterRecords(entries, loc)
	switch format {
	case FormatCSV:
		return writeCSV(records)
	case FormatXLSX:
		return writeXLSX(records)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Filename builds "<title>_报名信息_<YYYYMMDDHHMMSS>.<ext>".
func Filename(title string, format Format, at time.Time) string {
	return fmt.Sprintf("%s_报名信息_%s.%s", safeTitle(title), at.Format("20060102150405"), format)
}

func rosterRecords(entries []repository.RosterEntry, loc *time.Location) [][]string {
	if loc == nil {
		loc = time.UTC
	}

	records := make([][]string, 0, len(entries))
	for i, entry := range entries {
		records = append(records, []string{
			strconv.Itoa(i + 1),
			entry.RealName,
			entry.StudentID,
			entry.Grade,
			entry.Major,
			entry.College,
			entry.Phone,
			entry.QQ,
			entry.RegisterTime.In(loc).Format(timeLayout),
			string(entry.Status),
		})
	}
	return records
}

var titleReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")

func safeTitle(title string) string {
	cleaned := strings.TrimSpace(titleReplacer.Replace(title))
	if cleaned == "" {
		return "activity"
	}
	return cleaned
}
