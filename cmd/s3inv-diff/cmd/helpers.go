package cmd

import (
	"context"
	"fmt"

	"github.com/mbrode/s3-inv-diff/internal/logctx"
	"github.com/mbrode/s3-inv-diff/pkg/config"
	"github.com/mbrode/s3-inv-diff/pkg/inventory"
	"github.com/mbrode/s3-inv-diff/pkg/pipeline"
	"github.com/mbrode/s3-inv-diff/pkg/s3list"
)

// loadConfiguration reads the location list and, when --analysis was given,
// the analysis configuration validated against it.
func loadConfiguration() (*config.Locations, *config.Analysis, error) {
	loc, err := config.LoadLocations(configPath)
	if err != nil {
		return nil, nil, err
	}

	var analysis *config.Analysis
	if analysisPath != "" {
		analysis, err = config.LoadAnalysis(analysisPath, loc)
		if err != nil {
			return nil, nil, err
		}
	}
	return loc, analysis, nil
}

// newController wires the S3 extractor into the pipeline controller. The S3
// client is built per extraction from the ambient credentials, which is what
// lets the operator switch accounts between invocations.
func newController() (*pipeline.Controller, error) {
	loc, analysis, err := loadConfiguration()
	if err != nil {
		return nil, err
	}

	return &pipeline.Controller{
		ResultsDir: resultsDir,
		Locations:  loc,
		Analysis:   analysis,
		Extract: func(ctx context.Context, account config.Account) (inventory.AccountInventory, error) {
			client, err := s3list.NewClient(ctx, loc.Endpoint)
			if err != nil {
				return inventory.AccountInventory{}, err
			}
			extractor := s3list.NewExtractor(client, loc.PageSize)
			return extractor.Extract(ctx, account.Name, account.Queries)
		},
	}, nil
}

// commandContext attaches the configured logger to the cobra context.
func commandContext(ctx context.Context) context.Context {
	return logctx.WithLogger(ctx, logger)
}

func info(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}
