package inventory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mbrode/s3-inv-diff/pkg/fileutil"
	"github.com/mbrode/s3-inv-diff/pkg/query"
)

// csvHeader is the fixed column layout of a per-account inventory file.
var csvHeader = []string{"bucket", "prefix", "name", "date", "size", "hash"}

// DateLayout is the on-disk timestamp format, shared by the per-account and
// merged tables. Nanoseconds are kept so that a read-back inventory
// re-encodes byte-identically.
const DateLayout = time.RFC3339Nano

// WriteFile persists an account inventory to path. The file is published
// atomically: on any error nothing is written, and a previous inventory at
// the same path survives untouched.
func WriteFile(path string, inv AccountInventory) error {
	return fileutil.WriteTmpThenMove(path, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("create inventory file: %w", err)
		}
		defer f.Close()

		w := csv.NewWriter(f)
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("write inventory header: %w", err)
		}
		for _, row := range inv.Rows {
			if err := w.Write(encodeRow(row)); err != nil {
				return fmt.Errorf("write inventory row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("flush inventory: %w", err)
		}
		return f.Close()
	})
}

// ReadFile loads an account inventory previously written by WriteFile.
func ReadFile(path, account string) (AccountInventory, error) {
	f, err := os.Open(path)
	if err != nil {
		return AccountInventory{}, fmt.Errorf("open inventory for account %q: %w", account, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)

	header, err := r.Read()
	if err != nil {
		return AccountInventory{}, fmt.Errorf("read inventory header %s: %w", path, err)
	}
	for i, col := range csvHeader {
		if header[i] != col {
			return AccountInventory{}, fmt.Errorf("inventory %s: unexpected header column %q, want %q", path, header[i], col)
		}
	}

	inv := AccountInventory{Account: account}
	for line := 2; ; line++ {
		fields, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return AccountInventory{}, fmt.Errorf("inventory %s line %d: %w", path, line, err)
		}
		row, err := decodeRow(fields)
		if err != nil {
			return AccountInventory{}, fmt.Errorf("inventory %s line %d: %w", path, line, err)
		}
		inv.Rows = append(inv.Rows, row)
	}
	return inv, nil
}

// encodeRow flattens a row to CSV fields. Nil fields become empty strings.
func encodeRow(row Row) []string {
	fields := []string{row.Query.Bucket, row.Query.Prefix, "", "", "", ""}
	if row.Record.Name != nil {
		fields[2] = *row.Record.Name
	}
	if row.Record.Date != nil {
		fields[3] = row.Record.Date.UTC().Format(DateLayout)
	}
	if row.Record.Size != nil {
		fields[4] = strconv.FormatInt(*row.Record.Size, 10)
	}
	if row.Record.Hash != nil {
		fields[5] = *row.Record.Hash
	}
	return fields
}

func decodeRow(fields []string) (Row, error) {
	row := Row{Query: query.Query{Bucket: fields[0], Prefix: fields[1]}}
	if fields[0] == "" || fields[1] == "" {
		return Row{}, fmt.Errorf("row has empty bucket or prefix")
	}

	if fields[2] != "" {
		name := fields[2]
		row.Record.Name = &name
	}
	if fields[3] != "" {
		date, err := time.Parse(DateLayout, fields[3])
		if err != nil {
			return Row{}, fmt.Errorf("bad date %q: %w", fields[3], err)
		}
		row.Record.Date = &date
	}
	if fields[4] != "" {
		size, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return Row{}, fmt.Errorf("bad size %q: %w", fields[4], err)
		}
		row.Record.Size = &size
	}
	if fields[5] != "" {
		hash := fields[5]
		row.Record.Hash = &hash
	}
	return row, nil
}
