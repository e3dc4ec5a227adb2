package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowbridge/rowbridge/internal/pipeline"
	"github.com/rowbridge/rowbridge/internal/record"
)

func buildSet(t *testing.T, cols []string, rows ...record.Record) *record.Set {
	t.Helper()
	set := record.NewSet()
	set.AddColumns(cols...)
	set.Append(rows...)
	return set
}

func TestWorkbookRoundTrip(t *testing.T) {
	set := buildSet(t, []string{"name", "age", "active"},
		record.Record{"name": "Alice", "age": float64(30), "active": true},
		record.Record{"name": "Bob", "age": float64(25), "active": false},
	)
	wb := &record.Workbook{Sheets: []record.Sheet{{Name: "People", Set: set}}}

	var buf bytes.Buffer
	require.NoError(t, EncodeWorkbook(&buf, wb))

	got, err := DecodeWorkbook(bytes.NewReader(buf.Bytes()), WorkbookOptions{DynamicTyping: true})
	require.NoError(t, err)
	require.Len(t, got.Sheets, 1)
	assert.Equal(t, "People", got.Sheets[0].Name)

	gs := got.Sheets[0].Set
	assert.Equal(t, []string{"name", "age", "active"}, gs.Columns)
	require.Equal(t, 2, gs.Len())
	assert.Equal(t, "Alice", gs.Records[0]["name"])
	assert.Equal(t, float64(30), gs.Records[0]["age"])
	assert.Equal(t, false, gs.Records[1]["active"])
}

func TestWorkbookMultiSheet(t *testing.T) {
	wb := &record.Workbook{Sheets: []record.Sheet{
		{Name: "One", Set: buildSet(t, []string{"a"}, record.Record{"a": "x"})},
		{Name: "Two", Set: buildSet(t, []string{"b"}, record.Record{"b": "y"})},
	}}

	var buf bytes.Buffer
	require.NoError(t, EncodeWorkbook(&buf, wb))

	got, err := DecodeWorkbook(bytes.NewReader(buf.Bytes()), WorkbookOptions{})
	require.NoError(t, err)
	require.Len(t, got.Sheets, 2)
	assert.Equal(t, "One", got.Sheets[0].Name)
	assert.Equal(t, "Two", got.Sheets[1].Name)
	assert.Equal(t, "y", got.Sheets[1].Set.Records[0]["b"])
}

func TestEncodeWorkbookDefaultSheetName(t *testing.T) {
	wb := &record.Workbook{Sheets: []record.Sheet{
		{Name: "", Set: buildSet(t, []string{"a"}, record.Record{"a": "1"})},
	}}

	var buf bytes.Buffer
	require.NoError(t, EncodeWorkbook(&buf, wb))

	got, err := DecodeWorkbook(bytes.NewReader(buf.Bytes()), WorkbookOptions{})
	require.NoError(t, err)
	require.Len(t, got.Sheets, 1)
	assert.Equal(t, DefaultSheetName, got.Sheets[0].Name)
}

func TestDecodeWorkbookMissingCellsAreNil(t *testing.T) {
	// Second record omits the trailing column entirely, which excelize emits
	// as a short row.
	set := buildSet(t, []string{"a", "b"},
		record.Record{"a": "1", "b": "2"},
		record.Record{"a": "3"},
	)
	wb := &record.Workbook{Sheets: []record.Sheet{{Name: "S", Set: set}}}

	var buf bytes.Buffer
	require.NoError(t, EncodeWorkbook(&buf, wb))

	got, err := DecodeWorkbook(bytes.NewReader(buf.Bytes()), WorkbookOptions{})
	require.NoError(t, err)
	recs := got.Sheets[0].Set.Records
	require.Len(t, recs, 2)
	assert.Equal(t, "2", recs[0]["b"])
	assert.Nil(t, recs[1]["b"])
}

func TestDecodeWorkbookGarbage(t *testing.T) {
	_, err := DecodeWorkbook(bytes.NewReader([]byte("not a zip archive")), WorkbookOptions{})
	require.Error(t, err)
	var perr *pipeline.ParseError
	assert.True(t, errors.As(err, &perr))
}
