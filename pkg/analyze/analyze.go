// Package analyze computes the tri-state verification columns over a
// reconciled table: per target account, whether each origin file was
// correctly propagated, or whether a file's mere existence is a violation.
package analyze

import (
	"fmt"
	"slices"

	"github.com/mbrode/s3-inv-diff/pkg/config"
	"github.com/mbrode/s3-inv-diff/pkg/reconcile"
)

// TriState is a verdict that is True, False, or intentionally absent.
// Unset is never a default for False: it means "no applicable verdict".
type TriState int8

const (
	Unset TriState = iota
	False
	True
)

// String serializes the verdict the way the analysis file encodes it.
func (t TriState) String() string {
	switch t {
	case True:
		return "True"
	case False:
		return "False"
	default:
		return ""
	}
}

// Kind enumerates the relationship kinds a target can be verified under.
// Each kind carries its own column naming and truth table.
type Kind int

const (
	// KindCopy verifies that every origin file has a hash-identical copy
	// in the target.
	KindCopy Kind = iota

	// KindExistence verifies that the target holds no file the origin
	// does not have.
	KindExistence
)

type kindSpec struct {
	columnPrefix string
	verdict      func(origin, target reconcile.ColumnGroup) TriState
}

var kindSpecs = map[Kind]kindSpec{
	KindCopy:      {columnPrefix: "is_sync_ok_in_", verdict: copyVerdict},
	KindExistence: {columnPrefix: "can_exist_in_", verdict: existenceVerdict},
}

// Relation is one (kind, target account) pair to verify.
type Relation struct {
	Kind   Kind
	Target string
}

// Column returns the relation's result column name.
func (r Relation) Column() string {
	return kindSpecs[r.Kind].columnPrefix + r.Target
}

// Verdict evaluates the relation's truth table for one row.
func (r Relation) Verdict(origin, target reconcile.ColumnGroup) TriState {
	return kindSpecs[r.Kind].verdict(origin, target)
}

// copyVerdict implements the sync truth table. A null hash on either side is
// never a match: incomplete data must not produce a false "sync ok".
func copyVerdict(origin, target reconcile.ColumnGroup) TriState {
	if !origin.HasFile() {
		return Unset // nothing to sync
	}
	if !target.HasFile() {
		return False
	}
	if origin.Hash == nil || target.Hash == nil {
		return False
	}
	if *origin.Hash == *target.Hash {
		return True
	}
	return False
}

// existenceVerdict flags files present in the target but absent at the
// origin. It holds no opinion otherwise.
func existenceVerdict(origin, target reconcile.ColumnGroup) TriState {
	if !origin.HasFile() && target.HasFile() {
		return False
	}
	return Unset
}

// Result is a reconciled table annotated with verification columns.
// The underlying table is not modified.
type Result struct {
	Table     *reconcile.Table
	Relations []Relation
	// Columns holds one verdict per table row, keyed by relation column.
	Columns map[string][]TriState
}

// Apply evaluates the configured relationships over the table. Copy columns
// are computed before existence columns; each target's column depends only
// on the origin's and that target's data.
func Apply(table *reconcile.Table, cfg config.Analysis) (*Result, error) {
	accounts := map[string]bool{}
	for _, a := range table.Accounts {
		accounts[a] = true
	}
	if !accounts[cfg.Origin] {
		return nil, fmt.Errorf("origin account %q is not in the merged table", cfg.Origin)
	}
	for _, target := range cfg.Targets() {
		if !accounts[target] {
			return nil, fmt.Errorf("target account %q is not in the merged table", target)
		}
	}

	var relations []Relation
	for _, target := range cfg.CopyTargets {
		relations = append(relations, Relation{Kind: KindCopy, Target: target})
	}
	for _, target := range cfg.ExistenceTargets {
		relations = append(relations, Relation{Kind: KindExistence, Target: target})
	}

	res := &Result{
		Table:     table,
		Relations: relations,
		Columns:   make(map[string][]TriState, len(relations)),
	}
	for _, rel := range relations {
		verdicts := make([]TriState, len(table.Rows))
		for i, row := range table.Rows {
			verdicts[i] = rel.Verdict(row.Cell(cfg.Origin), row.Cell(rel.Target))
		}
		res.Columns[rel.Column()] = verdicts
	}
	return res, nil
}

// ColumnNames returns the relation columns in application order.
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.Relations))
	for i, rel := range r.Relations {
		names[i] = rel.Column()
	}
	return names
}

// Violations counts rows with at least one False verdict.
func (r *Result) Violations() int {
	var n int
	for i := range r.Table.Rows {
		if slices.ContainsFunc(r.Relations, func(rel Relation) bool {
			return r.Columns[rel.Column()][i] == False
		}) {
			n++
		}
	}
	return n
}
