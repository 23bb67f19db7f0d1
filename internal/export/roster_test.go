package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/activity-portal-api/internal/models"
	"github.com/noah-isme/activity-portal-api/internal/repository"
)

func sampleEntries() []repository.RosterEntry {
	registered := time.Date(2024, 3, 1, 2, 30, 0, 0, time.UTC)
	return []repository.RosterEntry{
		{RealName: "张三", StudentID: "2021001", Grade: "2021", Major: "软件工程", College: "计算机学院", Phone: "13800000001", QQ: "10001", RegisterTime: registered, Status: models.RegistrationStatusRegistered},
		{RealName: "李四", StudentID: "0021002", Grade: "2022", Major: "数学", College: "理学院", Phone: "13800000002", QQ: "10002", RegisterTime: registered.Add(time.Minute), Status: models.RegistrationStatusAttended},
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatCSV, format)

	format, err = ParseFormat(" XLSX ")
	require.NoError(t, err)
	require.Equal(t, FormatXLSX, format)

	_, err = ParseFormat("pdf")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRosterCSV(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)

	body, err := Roster(FormatCSV, sampleEntries(), shanghai)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(body, utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(body[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, RosterHeader, records[0])
	require.Equal(t, []string{"1", "张三", "2021001", "2021", "软件工程", "计算机学院", "13800000001", "10001", "2024-03-01 10:30:00", "registered"}, records[1])
	require.Equal(t, "2", records[2][0])
	require.Equal(t, "attended", records[2][9])
}

func TestRosterCSVEmptyStillHasHeader(t *testing.T) {
	body, err := Roster(FormatCSV, nil, time.UTC)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(body[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestRosterXLSX(t *testing.T) {
	body, err := Roster(FormatXLSX, sampleEntries(), time.UTC)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(rosterSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, RosterHeader, rows[0])
	require.Equal(t, "0021002", rows[2][2])
	require.Equal(t, "2024-03-01 02:31:00", rows[2][8])
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	require.Equal(t, "迎新晚会_报名信息_20240506070809.csv", Filename("迎新晚会", FormatCSV, at))
	require.Equal(t, "a_b_报名信息_20240506070809.xlsx", Filename("a/b", FormatXLSX, at))
	require.Equal(t, "activity_报名信息_20240506070809.csv", Filename("  ", FormatCSV, at))
}

func TestContentType(t *testing.T) {
	require.Contains(t, FormatCSV.ContentType(), "text/csv")
	require.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
}
