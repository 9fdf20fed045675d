package reconcile

import (
	"fmt"

	"github.com/mbrode/s3-inv-diff/pkg/inventory"
	"github.com/mbrode/s3-inv-diff/pkg/query"
)

// Pair maps one origin location to an account's equivalent location.
type Pair struct {
	Origin  query.Query
	Account query.Query
}

// Mapping is one account's URI-equivalence table. An empty mapping means the
// account uses the origin's naming as-is.
type Mapping []Pair

// identical reports whether every pair maps a location to itself, in which
// case no re-keying is needed.
func (m Mapping) identical() bool {
	for _, p := range m {
		if p.Origin != p.Account {
			return false
		}
	}
	return true
}

// toOrigin builds the account-key to origin-key lookup.
func (m Mapping) toOrigin() map[query.Query]query.Query {
	lookup := make(map[query.Query]query.Query, len(m))
	for _, p := range m {
		lookup[p.Account] = p.Origin
	}
	return lookup
}

// MappingIncompleteError reports an inventory row whose location has no
// entry in the account's equivalence table: the equivalence configuration is
// out of date relative to the actual queries.
type MappingIncompleteError struct {
	Account string
	Query   query.Query
}

func (e *MappingIncompleteError) Error() string {
	return fmt.Sprintf("account %q: location %s has no uri_map entry; the equivalence configuration is out of date", e.Account, e.Query)
}

// RowCountError reports that re-keying changed the shape of an account's
// inventory. This is an internal-consistency failure, typically caused by
// two distinct account locations mapping to the same origin location.
type RowCountError struct {
	Account string
	Before  int
	After   int
}

func (e *RowCountError) Error() string {
	return fmt.Sprintf("account %q: re-keying changed the row key count from %d to %d; check the uri_map for duplicate origins", e.Account, e.Before, e.After)
}

// Build outer-joins the account inventories into one table keyed by the
// origin account's naming. Inventories must be in configured account order;
// the first is the origin. mappings carries the optional per-account
// equivalence tables, keyed by account name.
func Build(invs []inventory.AccountInventory, mappings map[string]Mapping) (*Table, error) {
	if len(invs) == 0 {
		return nil, fmt.Errorf("no account inventories to reconcile")
	}

	table := &Table{}
	index := make(map[Key]int)

	for i, inv := range invs {
		table.Accounts = append(table.Accounts, inv.Account)

		rows := inv.Rows
		if i > 0 {
			if m := mappings[inv.Account]; len(m) > 0 && !m.identical() {
				remapped, err := remap(inv, m)
				if err != nil {
					return nil, err
				}
				rows = remapped
			}
		}

		for _, row := range rows {
			key := rowKey(row)
			idx, ok := index[key]
			if !ok {
				idx = len(table.Rows)
				index[key] = idx
				table.Rows = append(table.Rows, Row{Key: key, Cells: make(map[string]ColumnGroup)})
			}
			group := ColumnGroup{Date: row.Record.Date, Size: row.Record.Size, Hash: row.Record.Hash}
			if !group.IsNull() {
				table.Rows[idx].Cells[inv.Account] = group
			}
		}
	}

	table.Rows = dropNullRows(table.Rows)
	return table, nil
}

// remap rewrites an account's row locations to the origin's naming.
// The number of distinct row keys must be unchanged: a shrink means two
// account locations collapsed onto one origin location.
func remap(inv inventory.AccountInventory, m Mapping) ([]inventory.Row, error) {
	lookup := m.toOrigin()

	out := make([]inventory.Row, 0, len(inv.Rows))
	for _, row := range inv.Rows {
		origin, ok := lookup[row.Query]
		if !ok {
			return nil, &MappingIncompleteError{Account: inv.Account, Query: row.Query}
		}
		out = append(out, inventory.Row{Query: origin, Record: row.Record})
	}

	before := distinctKeys(inv.Rows)
	after := distinctKeys(out)
	if len(out) != len(inv.Rows) || after != before {
		return nil, &RowCountError{Account: inv.Account, Before: before, After: after}
	}
	return out, nil
}

func distinctKeys(rows []inventory.Row) int {
	seen := make(map[Key]bool, len(rows))
	for _, row := range rows {
		seen[rowKey(row)] = true
	}
	return len(seen)
}

func rowKey(row inventory.Row) Key {
	key := Key{Bucket: row.Query.Bucket, Prefix: row.Query.Prefix}
	if row.Record.Name != nil {
		key.Name = *row.Record.Name
	}
	return key
}

// dropNullRows removes rows that carry no data in any account, except the
// single sentinel row of a query that legitimately returned zero files
// everywhere. Such "empty query" markers survive so the analysis stage can
// still report the location as checked and empty.
func dropNullRows(rows []Row) []Row {
	siblings := make(map[query.Query]int)
	for _, row := range rows {
		siblings[row.Key.Query()]++
	}

	out := rows[:0]
	for _, row := range rows {
		// Null groups are never stored in Cells, so no cells means no data.
		if len(row.Cells) == 0 {
			isLoneSentinel := row.Key.Name == "" && siblings[row.Key.Query()] == 1
			if !isLoneSentinel {
				continue
			}
		}
		out = append(out, row)
	}
	return out
}
