package sheet

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/aanand-mishra/students-form/internal/types"
)

// workbook builds an xlsx file from raw rows, the way another tool (or a
// person in a spreadsheet program) would have left it.
func workbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecode_ByColumnName(t *testing.T) {
	data := workbook(t, [][]interface{}{
		{"Name", " UID ", "dob", "gender", "mobile", "section"},
		{"Asha", "S001", "2005-04-01", "female", "9876543210", "B"},
		{nil, nil, nil, nil, nil, nil},
		{"Ravi", "S002", "12/31/2004", "MALE", 9123456780, nil},
	})

	ds, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, ds.Records, 2, "blank rows are skipped")

	assert.Equal(t, []string{"name", "uid", "dob", "gender", "mobile", "section"}, ds.Columns)

	asha := ds.Records[0]
	assert.Equal(t, "S001", asha.UID)
	assert.Equal(t, "Asha", asha.Name)
	assert.Equal(t, "Female", asha.Gender)
	assert.Equal(t, "2005-04-01", asha.DOB.String())
	assert.Equal(t, "9876543210", asha.Mobile)
	assert.Equal(t, map[string]string{"section": "B"}, asha.Extra)

	ravi := ds.Records[1]
	assert.Equal(t, "Male", ravi.Gender)
	assert.Equal(t, "2004-12-31", ravi.DOB.String())
	assert.Equal(t, "9123456780", ravi.Mobile)
}

func TestDecode_DateCells(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"uid", "dob"}))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "S001"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", time.Date(2005, time.April, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetCellValue("Sheet1", "A3", "S002"))
	require.NoError(t, f.SetCellValue("Sheet1", "B3", "not a date"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ds, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, "2005-04-01", ds.Records[0].DOB.String())
	assert.Empty(t, ds.Records[0].RawDOB)
	assert.True(t, ds.Records[1].DOB.IsZero())
	assert.Equal(t, "not a date", ds.Records[1].RawDOB)
}

func TestEncode_KeepsUnreadableDOB(t *testing.T) {
	ds, err := Decode(workbook(t, [][]interface{}{
		{"uid", "name", "dob"},
		{"S001", "Asha", "2005-04-01"},
		{"S002", "Ravi", "01.04.2005"},
		{"S003", "Mina", "sometime in 2004"},
		{"S004", "Kiran", nil},
	}))
	require.NoError(t, err)
	require.Len(t, ds.Records, 4)
	assert.Equal(t, "2005-04-01", ds.Records[1].DOB.String(), "day-first dotted date")
	assert.Equal(t, []string{"S003"}, ds.UnreadableDOB())

	ds.Records[0].Name = "Asha K"
	data, err := Encode(ds)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"S001", "Asha K", "2005-04-01"}, rows[1][:3])
	assert.Equal(t, []string{"S002", "Ravi", "2005-04-01"}, rows[2][:3])
	assert.Equal(t, []string{"S003", "Mina", "sometime in 2004"}, rows[3][:3])
	assert.Equal(t, "S004", rows[4][0])
	if len(rows[4]) > 2 {
		assert.Empty(t, rows[4][2], "an empty dob stays empty")
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte("uid,dob\nS001,2005-04-01\n"))
	assert.Error(t, err, "csv is not a workbook")

	_, err = Decode(workbook(t, nil))
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = Decode(workbook(t, [][]interface{}{{"uid", "name"}, {"S001", "Asha"}}))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestEncode_RoundTrip(t *testing.T) {
	ds := types.Dataset{
		Columns: []string{"uid", "dob", "name", "section"},
		Records: []types.Record{
			{UID: "S001", DOB: types.NewDate(2005, time.April, 1), Name: "Asha", Mobile: "0987654321", Extra: map[string]string{"section": "B"}},
			{UID: "S002", Name: "No Date"},
		},
	}

	data, err := Encode(ds)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)

	// Missing canonical columns are appended after the file's own ones.
	assert.Equal(t, []string{"uid", "dob", "name", "section", "department", "gender", "email", "mobile", "aadhar", "fathersname", "mothersname"}, back.Columns)
	require.Len(t, back.Records, 2)
	assert.Equal(t, "0987654321", back.Records[0].Mobile, "text cells keep leading zeros")
	assert.Equal(t, ds.Records[0].DOB, back.Records[0].DOB)
	assert.Equal(t, "B", back.Records[0].Extra["section"])
	assert.True(t, back.Records[1].DOB.IsZero())

	again, err := Encode(back)
	require.NoError(t, err)
	final, err := Decode(again)
	require.NoError(t, err)
	assert.Equal(t, back, final)
}

func TestEncode_DefaultHeader(t *testing.T) {
	data, err := Encode(types.Dataset{})
	require.NoError(t, err)

	ds, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, types.Columns, ds.Columns)
	assert.Empty(t, ds.Records)
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Male", Capitalize("male"))
	assert.Equal(t, "Female", Capitalize("FEMALE"))
	assert.Equal(t, "", Capitalize(""))
}
