package s3list

import (
	"context"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mbrode/s3-inv-diff/internal/logctx"
	"github.com/mbrode/s3-inv-diff/pkg/inventory"
	"github.com/mbrode/s3-inv-diff/pkg/query"
)

// ListAPI is the subset of the S3 client the extractor needs. The production
// implementation is *s3.Client; tests supply a fake.
type ListAPI interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Extractor lists all objects for one account's queries. It has no skip
// logic and no persistence of its own: every call lists everything again,
// and deciding whether an account needs re-extraction belongs to the
// pipeline controller.
type Extractor struct {
	api      ListAPI
	pageSize int32
}

// NewExtractor creates an extractor listing pageSize keys per request.
// A non-positive pageSize falls back to the S3 maximum of 1000.
func NewExtractor(api ListAPI, pageSize int32) *Extractor {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Extractor{api: api, pageSize: pageSize}
}

// Pages enumerates the queries in order and calls emit once per listing page
// with the page's records, and once with a single all-null record for every
// query that matched nothing. Enumeration is lazy: a page is fetched only
// after the previous one was emitted. Any error aborts the whole account;
// partial progress must be discarded by the caller.
func (e *Extractor) Pages(ctx context.Context, queries []query.Query, emit func(q query.Query, recs []inventory.FileRecord) error) error {
	for _, q := range queries {
		if err := e.pagesForQuery(ctx, q, emit); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) pagesForQuery(ctx context.Context, q query.Query, emit func(query.Query, []inventory.FileRecord) error) error {
	log := logctx.FromContext(ctx)

	matched := false
	startAfter := ""
	for page := 1; ; page++ {
		input := &s3.ListObjectsV2Input{
			Bucket:    aws.String(q.Bucket),
			Prefix:    aws.String(q.Prefix),
			Delimiter: aws.String("/"),
			MaxKeys:   aws.Int32(e.pageSize),
		}
		if startAfter != "" {
			input.StartAfter = aws.String(startAfter)
		}

		out, err := e.api.ListObjectsV2(ctx, input)
		if err != nil {
			return describeRemoteError(q, err)
		}

		if len(out.CommonPrefixes) > 0 {
			folders := make([]string, 0, len(out.CommonPrefixes))
			for _, cp := range out.CommonPrefixes {
				folders = append(folders, aws.ToString(cp.Prefix))
			}
			return &FolderInLocationError{Bucket: q.Bucket, Folders: folders}
		}

		if len(out.Contents) == 0 {
			break
		}
		matched = true

		recs := make([]inventory.FileRecord, 0, len(out.Contents))
		for _, obj := range out.Contents {
			recs = append(recs, recordFromObject(obj))
		}
		log.Debug().Str("query", q.URI()).Int("page", page).Int("objects", len(recs)).Msg("listed page")

		if err := emit(q, recs); err != nil {
			return err
		}
		startAfter = aws.ToString(out.Contents[len(out.Contents)-1].Key)
	}

	if !matched {
		log.Debug().Str("query", q.URI()).Msg("query matched no objects")
		return emit(q, []inventory.FileRecord{{}})
	}
	return nil
}

// Extract runs Pages and collects the result into an AccountInventory.
func (e *Extractor) Extract(ctx context.Context, account string, queries []query.Query) (inventory.AccountInventory, error) {
	inv := inventory.AccountInventory{Account: account}
	err := e.Pages(ctx, queries, func(q query.Query, recs []inventory.FileRecord) error {
		for _, rec := range recs {
			inv.Rows = append(inv.Rows, inventory.Row{Query: q, Record: rec})
		}
		return nil
	})
	if err != nil {
		return inventory.AccountInventory{}, err
	}
	return inv, nil
}

// recordFromObject maps one listed object to a FileRecord: key basename,
// last-modified timestamp, byte size, and the ETag with its surrounding
// quote characters stripped.
func recordFromObject(obj types.Object) inventory.FileRecord {
	var rec inventory.FileRecord

	if obj.Key != nil {
		name := path.Base(*obj.Key)
		rec.Name = &name
	}
	if obj.LastModified != nil {
		date := obj.LastModified.UTC()
		rec.Date = &date
	}
	if obj.Size != nil {
		size := *obj.Size
		rec.Size = &size
	}
	if obj.ETag != nil {
		hash := strings.Trim(*obj.ETag, `"`)
		rec.Hash = &hash
	}
	return rec
}
