package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	dir := t.TempDir()
	res := sampleResult()
	res.RunID = "run-1"

	require.NoError(t, WriteXLSX(res, dir))

	f, err := excelize.OpenFile(filepath.Join(dir, "SPX_iv.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"iv", "summary"}, f.GetSheetList())

	rows, err := f.GetRows("iv")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, columns, rows[0])
	assert.Equal(t, "O:SPX260220C06000000", rows[1][0])
	assert.Equal(t, "0.2", rows[1][10])
	assert.Equal(t, "converged", rows[1][12])
	assert.Equal(t, "", rows[2][10])
	assert.Equal(t, "did not converge", rows[2][16])

	runID, err := f.GetCellValue("summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)
	solved, err := f.GetCellValue("summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "1", solved)
}

func TestWriteFormats(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Write(sampleResult(), dir, []string{"json", "xlsx"}))

	assert.FileExists(t, JSONPath(dir, "^SPX"))
	assert.FileExists(t, XLSXPath(dir, "^SPX"))
	_, err := os.Stat(CSVPath(dir, "^SPX"))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, Write(sampleResult(), dir, []string{"pdf"}))
}
