// Package s3list implements the paginated inventory extractor: it enumerates
// every object under an account's configured queries, one listing page at a
// time, and rejects locations that contain nested folders.
package s3list

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewClient creates an S3 client from the ambient AWS configuration of the
// current invocation. Each account is reachable only under its own
// credentials, so the client is built fresh per process run.
//
// A non-empty endpoint overrides the AWS endpoint for S3-compatible stores;
// path-style addressing is enabled in that case.
func NewClient(ctx context.Context, endpoint string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return client, nil
}
