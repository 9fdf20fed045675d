// Package config loads and validates the two operator-supplied files: the
// location list (accounts and their queries) and the optional analysis
// configuration (which relationships to verify).
//
// All configuration problems are detected eagerly, before any remote call,
// and reported together in one ValidationError.
package config

import (
	"fmt"
	"strings"

	"github.com/mbrode/s3-inv-diff/pkg/query"
)

// Locations is the parsed location list. The first account in order is the
// implicit reconciliation origin.
type Locations struct {
	// Endpoint optionally overrides the S3 endpoint, for S3-compatible
	// object stores. Empty means AWS.
	Endpoint string

	// PageSize is the listing page size. Defaults to 1000.
	PageSize int32

	Accounts []Account
}

// Account is one storage account: a name, its ordered queries, and an
// optional URI-equivalence map used when this account's bucket/prefix naming
// differs from the origin's.
type Account struct {
	Name    string
	Queries []query.Query
	URIMap  []URIPair
}

// URIPair maps one origin location to this account's equivalent location.
type URIPair struct {
	Origin  query.Query
	Account query.Query
}

// Analysis names the relationships the analysis stage verifies.
type Analysis struct {
	// Origin is the account whose files define the baseline. Must be the
	// first account of the location list.
	Origin string

	// CopyTargets are accounts that must hold a hash-identical copy of
	// every origin file.
	CopyTargets []string

	// ExistenceTargets are accounts in which a file not present at the
	// origin is a violation.
	ExistenceTargets []string
}

// Targets returns all accounts referenced by the analysis, origin excluded.
func (a Analysis) Targets() []string {
	out := make([]string, 0, len(a.CopyTargets)+len(a.ExistenceTargets))
	out = append(out, a.CopyTargets...)
	out = append(out, a.ExistenceTargets...)
	return out
}

// Origin returns the origin account of the location list.
func (l Locations) Origin() Account {
	return l.Accounts[0]
}

// Account looks up an account by name.
func (l Locations) Account(name string) (Account, bool) {
	for _, a := range l.Accounts {
		if a.Name == name {
			return a, true
		}
	}
	return Account{}, false
}

// AccountNames returns the configured account names in order.
func (l Locations) AccountNames() []string {
	names := make([]string, len(l.Accounts))
	for i, a := range l.Accounts {
		names[i] = a.Name
	}
	return names
}

// ValidationError holds every configuration problem found in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration invalid:\n  - %s", strings.Join(e.Problems, "\n  - "))
}
