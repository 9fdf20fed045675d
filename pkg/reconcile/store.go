package reconcile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mbrode/s3-inv-diff/pkg/fileutil"
	"github.com/mbrode/s3-inv-diff/pkg/inventory"
)

// groupSuffixes is the per-account column order in the merged file.
var groupSuffixes = []string{"date", "size", "hash"}

// Header returns the merged-file column names: the key columns followed by
// one <account>_<field> group per account in table order.
func (t *Table) Header() []string {
	header := []string{"bucket", "prefix", "name"}
	for _, account := range t.Accounts {
		for _, suffix := range groupSuffixes {
			header = append(header, account+"_"+suffix)
		}
	}
	return header
}

// RowFields flattens one row to CSV fields in Header order. Nulls become
// empty strings.
func (t *Table) RowFields(row Row) []string {
	fields := []string{row.Key.Bucket, row.Key.Prefix, row.Key.Name}
	for _, account := range t.Accounts {
		group := row.Cell(account)
		fields = append(fields, encodeGroup(group)...)
	}
	return fields
}

func encodeGroup(g ColumnGroup) []string {
	out := []string{"", "", ""}
	if g.Date != nil {
		out[0] = g.Date.UTC().Format(inventory.DateLayout)
	}
	if g.Size != nil {
		out[1] = strconv.FormatInt(*g.Size, 10)
	}
	if g.Hash != nil {
		out[2] = *g.Hash
	}
	return out
}

// WriteFile persists the merged table atomically.
func WriteFile(path string, table *Table) error {
	return fileutil.WriteTmpThenMove(path, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("create merged file: %w", err)
		}
		defer f.Close()

		w := csv.NewWriter(f)
		if err := w.Write(table.Header()); err != nil {
			return fmt.Errorf("write merged header: %w", err)
		}
		for _, row := range table.Rows {
			if err := w.Write(table.RowFields(row)); err != nil {
				return fmt.Errorf("write merged row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("flush merged file: %w", err)
		}
		return f.Close()
	})
}

// ReadFile loads a merged table previously written by WriteFile, recovering
// the account order from the header.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open merged file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read merged header %s: %w", path, err)
	}

	accounts, err := accountsFromHeader(header)
	if err != nil {
		return nil, fmt.Errorf("merged file %s: %w", path, err)
	}

	table := &Table{Accounts: accounts}
	r.FieldsPerRecord = len(header)
	for line := 2; ; line++ {
		fields, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("merged file %s line %d: %w", path, line, err)
		}
		row, err := decodeTableRow(accounts, fields)
		if err != nil {
			return nil, fmt.Errorf("merged file %s line %d: %w", path, line, err)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func accountsFromHeader(header []string) ([]string, error) {
	if len(header) < 3 || header[0] != "bucket" || header[1] != "prefix" || header[2] != "name" {
		return nil, fmt.Errorf("header does not start with bucket,prefix,name")
	}
	groups := header[3:]
	if len(groups) == 0 || len(groups)%len(groupSuffixes) != 0 {
		return nil, fmt.Errorf("header has %d data columns, want a multiple of %d", len(groups), len(groupSuffixes))
	}

	var accounts []string
	for i := 0; i < len(groups); i += len(groupSuffixes) {
		account, ok := strings.CutSuffix(groups[i], "_date")
		if !ok || account == "" {
			return nil, fmt.Errorf("unexpected column %q, want <account>_date", groups[i])
		}
		for j, suffix := range groupSuffixes {
			if want := account + "_" + suffix; groups[i+j] != want {
				return nil, fmt.Errorf("unexpected column %q, want %q", groups[i+j], want)
			}
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func decodeTableRow(accounts []string, fields []string) (Row, error) {
	if fields[0] == "" || fields[1] == "" {
		return Row{}, fmt.Errorf("row has empty bucket or prefix")
	}
	row := Row{
		Key:   Key{Bucket: fields[0], Prefix: fields[1], Name: fields[2]},
		Cells: make(map[string]ColumnGroup),
	}

	for i, account := range accounts {
		group, err := decodeGroup(fields[3+i*len(groupSuffixes):])
		if err != nil {
			return Row{}, fmt.Errorf("account %q: %w", account, err)
		}
		if !group.IsNull() {
			row.Cells[account] = group
		}
	}
	return row, nil
}

func decodeGroup(fields []string) (ColumnGroup, error) {
	var g ColumnGroup
	if fields[0] != "" {
		date, err := time.Parse(inventory.DateLayout, fields[0])
		if err != nil {
			return ColumnGroup{}, fmt.Errorf("bad date %q: %w", fields[0], err)
		}
		g.Date = &date
	}
	if fields[1] != "" {
		size, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return ColumnGroup{}, fmt.Errorf("bad size %q: %w", fields[1], err)
		}
		g.Size = &size
	}
	if fields[2] != "" {
		hash := fields[2]
		g.Hash = &hash
	}
	return g, nil
}
