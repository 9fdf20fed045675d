package export

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// readBack returns every row as a column-name to value map, with null
// columns absent.
func readBack(t *testing.T, path string) []map[string]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)

	file, err := parquet.OpenFile(f, info.Size())
	require.NoError(t, err)

	nameForCol := make(map[int]string)
	for i, path := range file.Schema().Columns() {
		nameForCol[i] = path[0]
	}

	var out []map[string]string
	buf := make([]parquet.Row, 8)
	for _, rg := range file.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				decoded := make(map[string]string)
				for _, val := range row {
					if val.IsNull() {
						continue
					}
					decoded[nameForCol[val.Column()]] = val.String()
				}
				out = append(out, decoded)
			}
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
		}
		require.NoError(t, rows.Close())
	}
	return out
}

func TestFileConvertsValuesAndNulls(t *testing.T) {
	csvPath := writeCSV(t, strings.Join([]string{
		"bucket,prefix,name,a_size,a_hash,b_size,b_hash",
		"bucket,path/,f.csv,10,h1,10,h1",
		"bucket,empty/,,,,,",
	}, "\n")+"\n")
	parquetPath := filepath.Join(t.TempDir(), "out.parquet")

	require.NoError(t, File(csvPath, parquetPath))

	rows := readBack(t, parquetPath)
	require.Len(t, rows, 2)

	assert.Equal(t, map[string]string{
		"bucket": "bucket", "prefix": "path/", "name": "f.csv",
		"a_size": "10", "a_hash": "h1", "b_size": "10", "b_hash": "h1",
	}, rows[0])

	// The empty-location marker keeps every column but bucket and prefix null.
	assert.Equal(t, map[string]string{"bucket": "bucket", "prefix": "empty/"}, rows[1])
}

func TestFileHeaderOnly(t *testing.T) {
	csvPath := writeCSV(t, "bucket,prefix,name\n")
	parquetPath := filepath.Join(t.TempDir(), "out.parquet")

	require.NoError(t, File(csvPath, parquetPath))
	assert.Empty(t, readBack(t, parquetPath))
}

func TestFileRejectsDuplicateColumns(t *testing.T) {
	csvPath := writeCSV(t, "bucket,bucket\n")
	err := File(csvPath, filepath.Join(t.TempDir(), "out.parquet"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeats column")
}

func TestFileMissingInput(t *testing.T) {
	err := File(filepath.Join(t.TempDir(), "nope.csv"), filepath.Join(t.TempDir(), "out.parquet"))
	require.Error(t, err)
}

func TestFileFailureLeavesNoOutput(t *testing.T) {
	// A ragged row aborts the export after the writer has started.
	csvPath := filepath.Join(t.TempDir(), "input.csv")
	content := "bucket,prefix,name\nbucket,path/,f.csv\nbucket,short/\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(content), 0o644))

	outDir := t.TempDir()
	parquetPath := filepath.Join(outDir, "out.parquet")
	require.Error(t, File(csvPath, parquetPath))

	_, err := os.Stat(parquetPath)
	assert.True(t, os.IsNotExist(err), "failed export must not publish a file")
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp files left behind")
}
