// Package export converts the CSV outputs of a run into Parquet for
// downstream query engines. Every CSV column becomes an optional string
// column; empty CSV fields stay null rather than becoming empty strings.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/mbrode/s3-inv-diff/pkg/fileutil"
)

// File converts one CSV file to Parquet. The Parquet file is published
// atomically and carries the CSV header as its schema.
func File(csvPath, parquetPath string) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", csvPath, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", csvPath, err)
	}

	schema, colForField, err := schemaFromHeader(header)
	if err != nil {
		return fmt.Errorf("build schema for %s: %w", csvPath, err)
	}

	return fileutil.WriteTmpThenMove(parquetPath, func(tmpPath string) error {
		out, err := os.Create(tmpPath)
		if err != nil {
			return err
		}
		defer out.Close()

		writer := parquet.NewWriter(out, schema)
		if err := copyRows(reader, writer, colForField); err != nil {
			return err
		}
		if err := writer.Close(); err != nil {
			return fmt.Errorf("finalize parquet file: %w", err)
		}
		return out.Close()
	})
}

// schemaFromHeader maps each header field to an optional string column.
// Parquet orders columns by schema, not by header position, so the second
// return value maps header index to parquet column index.
func schemaFromHeader(header []string) (*parquet.Schema, []int, error) {
	group := parquet.Group{}
	for _, name := range header {
		if name == "" {
			return nil, nil, errors.New("header has an empty column name")
		}
		if _, dup := group[name]; dup {
			return nil, nil, fmt.Errorf("header repeats column %q", name)
		}
		group[name] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("rows", group)

	colIndex := make(map[string]int, len(header))
	for i, path := range schema.Columns() {
		colIndex[path[0]] = i
	}
	colForField := make([]int, len(header))
	for i, name := range header {
		colForField[i] = colIndex[name]
	}
	return schema, colForField, nil
}

func copyRows(reader *csv.Reader, writer *parquet.Writer, colForField []int) error {
	row := make(parquet.Row, len(colForField))
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read csv row: %w", err)
		}
		if len(record) != len(colForField) {
			return fmt.Errorf("csv row has %d fields, header has %d", len(record), len(colForField))
		}

		for i, field := range record {
			col := colForField[i]
			if field == "" {
				row[col] = parquet.NullValue().Level(0, 0, col)
			} else {
				row[col] = parquet.ByteArrayValue([]byte(field)).Level(0, 1, col)
			}
		}
		if _, err := writer.WriteRows([]parquet.Row{row}); err != nil {
			return fmt.Errorf("write parquet row: %w", err)
		}
	}
}
