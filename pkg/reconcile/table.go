// Package reconcile aligns per-account inventories into one wide table keyed
// by the origin account's canonical (bucket, prefix, name), re-keying
// accounts whose bucket/prefix naming differs via an operator-supplied
// URI-equivalence table.
package reconcile

import (
	"time"

	"github.com/mbrode/s3-inv-diff/pkg/query"
)

// ColumnGroup is one account's data for one table row. All fields are
// nullable; a zero ColumnGroup means the account has nothing at this key.
type ColumnGroup struct {
	Date *time.Time
	Size *int64
	Hash *string
}

// IsNull reports whether the group carries no data at all.
func (g ColumnGroup) IsNull() bool {
	return g.Date == nil && g.Size == nil && g.Hash == nil
}

// HasFile reports whether the account has a file at this key. Presence is
// defined by a non-null size, so a present-but-empty file still counts.
func (g ColumnGroup) HasFile() bool {
	return g.Size != nil
}

// Key identifies one table row in the origin account's naming. An empty Name
// marks the checked-but-empty sentinel for its (bucket, prefix).
type Key struct {
	Bucket string
	Prefix string
	Name   string
}

// Query returns the key's location part.
func (k Key) Query() query.Query {
	return query.Query{Bucket: k.Bucket, Prefix: k.Prefix}
}

// Row is one reconciled table row: a key plus one column group per account.
// Accounts absent from Cells have no data at this key.
type Row struct {
	Key   Key
	Cells map[string]ColumnGroup
}

// Cell returns the account's column group, zero if the account has no data.
func (r Row) Cell(account string) ColumnGroup {
	return r.Cells[account]
}

// Table is the reconciled inventory of all accounts. Accounts are in
// configured order, the first being the origin; row order follows join
// order (origin rows first, in extraction order, then rows only other
// accounts contributed).
type Table struct {
	Accounts []string
	Rows     []Row
}
