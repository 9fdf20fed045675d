package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mbrode/s3-inv-diff/pkg/query"
)

// defaultPageSize is the S3 ListObjectsV2 maximum, used when the location
// list does not set page_size.
const defaultPageSize = 1000

// Raw YAML shapes. URIs stay strings here and are parsed during validation
// so that every malformed location is reported, not just the first.

type rawLocations struct {
	Endpoint string       `yaml:"endpoint"`
	PageSize int32        `yaml:"page_size"`
	Accounts []rawAccount `yaml:"accounts"`
}

type rawAccount struct {
	Name    string       `yaml:"name"`
	Queries []string     `yaml:"queries"`
	URIMap  []rawURIPair `yaml:"uri_map"`
}

type rawURIPair struct {
	Origin  string `yaml:"origin"`
	Account string `yaml:"account"`
}

type rawAnalysis struct {
	Origin           string   `yaml:"origin"`
	CopyTargets      []string `yaml:"copy_targets"`
	ExistenceTargets []string `yaml:"existence_targets"`
}

// LoadLocations reads and validates a location list file.
func LoadLocations(path string) (*Locations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read location list %s: %w", path, err)
	}

	var raw rawLocations
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse location list %s: %w", path, err)
	}

	loc, problems := buildLocations(raw)
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return loc, nil
}

func buildLocations(raw rawLocations) (*Locations, []string) {
	var problems []string

	loc := &Locations{
		Endpoint: raw.Endpoint,
		PageSize: raw.PageSize,
	}
	if loc.PageSize == 0 {
		loc.PageSize = defaultPageSize
	}
	if loc.PageSize < 0 {
		problems = append(problems, fmt.Sprintf("page_size %d is negative", loc.PageSize))
	}

	if len(raw.Accounts) == 0 {
		problems = append(problems, "at least one account is required")
	}

	seenNames := make(map[string]bool)
	for i, ra := range raw.Accounts {
		label := fmt.Sprintf("account[%d]", i)
		if ra.Name != "" {
			label = fmt.Sprintf("account %q", ra.Name)
		}

		if ra.Name == "" {
			problems = append(problems, label+": name is empty")
		}
		if seenNames[ra.Name] {
			problems = append(problems, label+": duplicate account name")
		}
		seenNames[ra.Name] = true

		acct := Account{Name: ra.Name}

		if len(ra.Queries) == 0 {
			problems = append(problems, label+": no queries configured")
		}
		seenQueries := make(map[query.Query]bool)
		for _, uri := range ra.Queries {
			q, err := query.Parse(uri)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", label, err))
				continue
			}
			if seenQueries[q] {
				problems = append(problems, fmt.Sprintf("%s: duplicate query %s", label, q))
				continue
			}
			seenQueries[q] = true
			acct.Queries = append(acct.Queries, q)
		}

		if i == 0 && len(ra.URIMap) > 0 {
			problems = append(problems, label+": uri_map is not allowed on the origin account")
		}
		seenMapKeys := make(map[query.Query]bool)
		for j, rp := range ra.URIMap {
			pair, errs := parseURIPair(rp, fmt.Sprintf("%s uri_map[%d]", label, j))
			problems = append(problems, errs...)
			if len(errs) > 0 {
				continue
			}
			if seenMapKeys[pair.Account] {
				problems = append(problems, fmt.Sprintf("%s uri_map[%d]: duplicate account URI %s", label, j, pair.Account))
				continue
			}
			seenMapKeys[pair.Account] = true
			acct.URIMap = append(acct.URIMap, pair)
		}

		loc.Accounts = append(loc.Accounts, acct)
	}

	return loc, problems
}

func parseURIPair(rp rawURIPair, label string) (URIPair, []string) {
	var problems []string
	origin, err := query.Parse(rp.Origin)
	if err != nil {
		problems = append(problems, fmt.Sprintf("%s origin: %v", label, err))
	}
	account, err := query.Parse(rp.Account)
	if err != nil {
		problems = append(problems, fmt.Sprintf("%s account: %v", label, err))
	}
	return URIPair{Origin: origin, Account: account}, problems
}

// LoadAnalysis reads and validates an analysis configuration against the
// location list it refers to.
func LoadAnalysis(path string, loc *Locations) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read analysis config %s: %w", path, err)
	}

	var raw rawAnalysis
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse analysis config %s: %w", path, err)
	}

	a := &Analysis{
		Origin:           raw.Origin,
		CopyTargets:      raw.CopyTargets,
		ExistenceTargets: raw.ExistenceTargets,
	}

	var problems []string
	if a.Origin == "" {
		problems = append(problems, "origin is empty")
	} else if a.Origin != loc.Origin().Name {
		problems = append(problems, fmt.Sprintf(
			"origin %q must be the first account of the location list (%q)", a.Origin, loc.Origin().Name))
	}

	if len(a.CopyTargets) == 0 && len(a.ExistenceTargets) == 0 {
		problems = append(problems, "no copy_targets or existence_targets configured")
	}

	seen := make(map[string]bool)
	for _, target := range a.Targets() {
		if _, ok := loc.Account(target); !ok {
			problems = append(problems, fmt.Sprintf("target %q is not in the location list", target))
		}
		if target == a.Origin {
			problems = append(problems, fmt.Sprintf("target %q is the origin account", target))
		}
		if seen[target] {
			problems = append(problems, fmt.Sprintf("target %q appears more than once", target))
		}
		seen[target] = true
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return a, nil
}
