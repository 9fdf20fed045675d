// Package inventory defines the per-account object inventory model and its
// CSV persistence.
//
// An account inventory is the single source of truth for what one account's
// queries returned. It is written all-or-nothing: a failed extraction leaves
// no file behind, so downstream stages can treat file presence as "this
// account was fully extracted".
package inventory

import (
	"time"

	"github.com/mbrode/s3-inv-diff/pkg/query"
)

// FileRecord describes one object discovered under a query. All fields are
// nullable: a query with zero matching objects yields exactly one FileRecord
// with every field nil, so "this location was checked and is empty" is
// distinguishable from "this location was never checked".
type FileRecord struct {
	Name *string
	Date *time.Time
	Size *int64
	Hash *string
}

// IsEmpty reports whether the record is the checked-but-empty sentinel.
func (r FileRecord) IsEmpty() bool {
	return r.Name == nil && r.Date == nil && r.Size == nil && r.Hash == nil
}

// Row is one inventory line: a FileRecord tagged with its source query.
type Row struct {
	Query  query.Query
	Record FileRecord
}

// AccountInventory is the ordered result of extracting one account.
// Row order follows extraction page order.
type AccountInventory struct {
	Account string
	Rows    []Row
}

// Queries returns the distinct queries present in the inventory, in first
// occurrence order.
func (inv AccountInventory) Queries() []query.Query {
	seen := make(map[query.Query]bool)
	var out []query.Query
	for _, row := range inv.Rows {
		if !seen[row.Query] {
			seen[row.Query] = true
			out = append(out, row.Query)
		}
	}
	return out
}
