// Package query defines the storage location value type used as the unit of
// inventory enumeration and as part of the reconciliation key.
package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidURI is returned when a location string is not of the form
// s3://bucket/prefix.
var ErrInvalidURI = errors.New("invalid location URI")

// Query is a normalized storage location: a bucket plus a prefix.
// The prefix is always slash-terminated, so two queries constructed from
// "s3://b/p" and "s3://b/p/" compare equal. Queries are immutable values
// and are safe to use as map keys.
type Query struct {
	Bucket string
	Prefix string
}

// Parse constructs a Query from an s3://bucket/prefix URI.
// The prefix must be non-empty: enumerating a whole bucket is not supported.
func Parse(uri string) (Query, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return Query{}, fmt.Errorf("%w: %q must start with s3://", ErrInvalidURI, uri)
	}

	bucket, prefix, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" {
		return Query{}, fmt.Errorf("%w: %q has no bucket", ErrInvalidURI, uri)
	}
	if strings.Trim(prefix, "/") == "" {
		return Query{}, fmt.Errorf("%w: %q has no prefix", ErrInvalidURI, uri)
	}

	return Query{Bucket: bucket, Prefix: normalizePrefix(prefix)}, nil
}

// MustParse is Parse for statically known URIs, mostly tests. Panics on error.
func MustParse(uri string) Query {
	q, err := Parse(uri)
	if err != nil {
		panic(err)
	}
	return q
}

// normalizePrefix guarantees exactly one trailing slash.
func normalizePrefix(p string) string {
	return strings.TrimRight(p, "/") + "/"
}

// URI renders the query back to s3://bucket/prefix/ form.
func (q Query) URI() string {
	return fmt.Sprintf("s3://%s/%s", q.Bucket, q.Prefix)
}

func (q Query) String() string {
	return q.URI()
}

// IsZero reports whether q is the zero value.
func (q Query) IsZero() bool {
	return q.Bucket == "" && q.Prefix == ""
}
