package reconcile

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbrode/s3-inv-diff/pkg/inventory"
	"github.com/mbrode/s3-inv-diff/pkg/query"
)

var testDate = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func fileRow(uri, name string, size int64, hash string) inventory.Row {
	return inventory.Row{
		Query: query.MustParse(uri),
		Record: inventory.FileRecord{
			Name: aws.String(name),
			Date: aws.Time(testDate),
			Size: aws.Int64(size),
			Hash: aws.String(hash),
		},
	}
}

func sentinelRow(uri string) inventory.Row {
	return inventory.Row{Query: query.MustParse(uri)}
}

func TestBuildJoinsOnSharedNaming(t *testing.T) {
	invs := []inventory.AccountInventory{
		{Account: "prod", Rows: []inventory.Row{
			fileRow("s3://bucket-a/exports/", "f.csv", 10, "h1"),
			fileRow("s3://bucket-a/exports/", "g.csv", 20, "h2"),
		}},
		{Account: "backup", Rows: []inventory.Row{
			fileRow("s3://bucket-a/exports/", "f.csv", 10, "h1"),
		}},
	}

	table, err := Build(invs, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"prod", "backup"}, table.Accounts)
	require.Len(t, table.Rows, 2)

	f := table.Rows[0]
	assert.Equal(t, Key{"bucket-a", "exports/", "f.csv"}, f.Key)
	assert.Equal(t, "h1", *f.Cell("prod").Hash)
	assert.Equal(t, "h1", *f.Cell("backup").Hash)

	g := table.Rows[1]
	assert.Equal(t, Key{"bucket-a", "exports/", "g.csv"}, g.Key)
	assert.True(t, g.Cell("backup").IsNull(), "outer join keeps rows missing in other accounts")
}

func TestBuildPreservesRowsOnlyInNonOrigin(t *testing.T) {
	invs := []inventory.AccountInventory{
		{Account: "prod", Rows: []inventory.Row{
			fileRow("s3://bucket-a/exports/", "f.csv", 10, "h1"),
		}},
		{Account: "dmz", Rows: []inventory.Row{
			fileRow("s3://bucket-a/exports/", "leak.csv", 5, "h9"),
		}},
	}

	table, err := Build(invs, nil)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	leak := table.Rows[1]
	assert.Equal(t, "leak.csv", leak.Key.Name)
	assert.True(t, leak.Cell("prod").IsNull())
	assert.True(t, leak.Cell("dmz").HasFile())
}

func TestBuildRemapsDifferingNaming(t *testing.T) {
	invs := []inventory.AccountInventory{
		{Account: "prod", Rows: []inventory.Row{
			fileRow("s3://bucket-a/exports/", "f.csv", 10, "h1"),
		}},
		{Account: "backup", Rows: []inventory.Row{
			fileRow("s3://bucket-b/mirror/", "f.csv", 10, "h1"),
		}},
	}
	mappings := map[string]Mapping{
		"backup": {{Origin: query.MustParse("s3://bucket-a/exports/"), Account: query.MustParse("s3://bucket-b/mirror/")}},
	}

	table, err := Build(invs, mappings)
	require.NoError(t, err)

	require.Len(t, table.Rows, 1, "remapped row must land on the origin key")
	row := table.Rows[0]
	assert.Equal(t, Key{"bucket-a", "exports/", "f.csv"}, row.Key)
	assert.Equal(t, "h1", *row.Cell("backup").Hash)
}

func TestBuildIdenticalMappingSkipsRemap(t *testing.T) {
	invs := []inventory.AccountInventory{
		{Account: "prod", Rows: []inventory.Row{fileRow("s3://b/p/", "f.csv", 1, "h")}},
		{Account: "backup", Rows: []inventory.Row{fileRow("s3://b/p/", "f.csv", 1, "h")}},
	}
	// Both columns equal: the account uses origin naming, so the (partial)
	// table must not be consulted at all.
	mappings := map[string]Mapping{
		"backup": {{Origin: query.MustParse("s3://b/other/"), Account: query.MustParse("s3://b/other/")}},
	}

	table, err := Build(invs, mappings)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "h", *table.Rows[0].Cell("backup").Hash)
}

func TestBuildMappingIncomplete(t *testing.T) {
	invs := []inventory.AccountInventory{
		{Account: "prod", Rows: []inventory.Row{fileRow("s3://bucket-a/exports/", "f.csv", 1, "h")}},
		{Account: "backup", Rows: []inventory.Row{
			fileRow("s3://bucket-b/mirror/", "f.csv", 1, "h"),
			fileRow("s3://bucket-b/unmapped/", "g.csv", 1, "h"),
		}},
	}
	mappings := map[string]Mapping{
		"backup": {{Origin: query.MustParse("s3://bucket-a/exports/"), Account: query.MustParse("s3://bucket-b/mirror/")}},
	}

	_, err := Build(invs, mappings)
	var incomplete *MappingIncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, "backup", incomplete.Account)
	assert.Equal(t, query.MustParse("s3://bucket-b/unmapped/"), incomplete.Query)
}

func TestBuildRowCountMismatch(t *testing.T) {
	// Two distinct backup locations collapse onto one origin location, so
	// two rows with the same name would silently merge.
	invs := []inventory.AccountInventory{
		{Account: "prod", Rows: []inventory.Row{fileRow("s3://bucket-a/exports/", "f.csv", 1, "h")}},
		{Account: "backup", Rows: []inventory.Row{
			fileRow("s3://bucket-b/x/", "f.csv", 1, "h"),
			fileRow("s3://bucket-b/y/", "f.csv", 2, "h2"),
		}},
	}
	mappings := map[string]Mapping{
		"backup": {
			{Origin: query.MustParse("s3://bucket-a/exports/"), Account: query.MustParse("s3://bucket-b/x/")},
			{Origin: query.MustParse("s3://bucket-a/exports/"), Account: query.MustParse("s3://bucket-b/y/")},
		},
	}

	_, err := Build(invs, mappings)
	var countErr *RowCountError
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, "backup", countErr.Account)
	assert.Equal(t, 2, countErr.Before)
	assert.Equal(t, 1, countErr.After)
}

func TestBuildRemapPreservesRowCount(t *testing.T) {
	invs := []inventory.AccountInventory{
		{Account: "prod", Rows: []inventory.Row{
			fileRow("s3://bucket-a/p1/", "a.csv", 1, "h"),
			fileRow("s3://bucket-a/p2/", "b.csv", 2, "h"),
		}},
		{Account: "backup", Rows: []inventory.Row{
			fileRow("s3://bucket-b/q1/", "a.csv", 1, "h"),
			fileRow("s3://bucket-b/q2/", "b.csv", 2, "h"),
			fileRow("s3://bucket-b/q2/", "c.csv", 3, "h"),
		}},
	}
	mappings := map[string]Mapping{
		"backup": {
			{Origin: query.MustParse("s3://bucket-a/p1/"), Account: query.MustParse("s3://bucket-b/q1/")},
			{Origin: query.MustParse("s3://bucket-a/p2/"), Account: query.MustParse("s3://bucket-b/q2/")},
		},
	}

	table, err := Build(invs, mappings)
	require.NoError(t, err)
	// 2 origin rows + c.csv only present in backup. Nothing gained or lost
	// by remapping alone.
	assert.Len(t, table.Rows, 3)
}

func TestBuildKeepsLoneEmptyQueryMarker(t *testing.T) {
	invs := []inventory.AccountInventory{
		{Account: "prod", Rows: []inventory.Row{sentinelRow("s3://bucket-a/empty/")}},
		{Account: "backup", Rows: []inventory.Row{sentinelRow("s3://bucket-a/empty/")}},
	}

	table, err := Build(invs, nil)
	require.NoError(t, err)

	require.Len(t, table.Rows, 1, "empty-everywhere marker must survive")
	row := table.Rows[0]
	assert.Equal(t, Key{"bucket-a", "empty/", ""}, row.Key)
	assert.True(t, row.Cell("prod").IsNull())
	assert.True(t, row.Cell("backup").IsNull())
}

func TestBuildDropsSentinelWithSiblings(t *testing.T) {
	invs := []inventory.AccountInventory{
		{Account: "prod", Rows: []inventory.Row{sentinelRow("s3://bucket-a/exports/")}},
		{Account: "backup", Rows: []inventory.Row{
			fileRow("s3://bucket-a/exports/", "f.csv", 1, "h"),
		}},
	}

	table, err := Build(invs, nil)
	require.NoError(t, err)

	require.Len(t, table.Rows, 1, "sentinel with sibling file rows must be dropped")
	assert.Equal(t, "f.csv", table.Rows[0].Key.Name)
}

func TestBuildDropsAllNullNamedRows(t *testing.T) {
	invs := []inventory.AccountInventory{
		{Account: "prod", Rows: []inventory.Row{
			{Query: query.MustParse("s3://bucket-a/exports/"), Record: inventory.FileRecord{Name: aws.String("ghost.csv")}},
			fileRow("s3://bucket-a/exports/", "f.csv", 1, "h"),
		}},
	}

	table, err := Build(invs, nil)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "f.csv", table.Rows[0].Key.Name)
}

func TestBuildNoInventories(t *testing.T) {
	_, err := Build(nil, nil)
	require.Error(t, err)
}
