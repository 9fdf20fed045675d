package analyze

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/mbrode/s3-inv-diff/pkg/fileutil"
)

// WriteFile persists the annotated table atomically: the merged columns
// followed by the relation columns, tri-states as True/False/empty.
func WriteFile(path string, res *Result) error {
	return fileutil.WriteTmpThenMove(path, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("create analysis file: %w", err)
		}
		defer f.Close()

		w := csv.NewWriter(f)
		header := append(res.Table.Header(), res.ColumnNames()...)
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write analysis header: %w", err)
		}

		for i, row := range res.Table.Rows {
			fields := res.Table.RowFields(row)
			for _, name := range res.ColumnNames() {
				fields = append(fields, res.Columns[name][i].String())
			}
			if err := w.Write(fields); err != nil {
				return fmt.Errorf("write analysis row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("flush analysis file: %w", err)
		}
		return f.Close()
	})
}
