package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mbrode/s3-inv-diff/internal/logctx"
	"github.com/mbrode/s3-inv-diff/pkg/analyze"
	"github.com/mbrode/s3-inv-diff/pkg/config"
	"github.com/mbrode/s3-inv-diff/pkg/fileutil"
	"github.com/mbrode/s3-inv-diff/pkg/inventory"
	"github.com/mbrode/s3-inv-diff/pkg/reconcile"
)

// Stage names the pipeline stages.
type Stage string

const (
	StageExtraction     Stage = "extraction"
	StageReconciliation Stage = "reconciliation"
	StageAnalysis       Stage = "analysis"
)

// ExtractFunc lists one account under the credentials of the current
// invocation. The production implementation wraps the S3 extractor; tests
// supply a fake.
type ExtractFunc func(ctx context.Context, account config.Account) (inventory.AccountInventory, error)

// Controller drives one pipeline step per invocation.
type Controller struct {
	ResultsDir string
	Locations  *config.Locations

	// Analysis is nil when no analysis configuration was supplied; the
	// analysis stage then completes the run with a no-op notice.
	Analysis *config.Analysis

	Extract ExtractFunc

	// Now is the clock used for run identifiers. Defaults to time.Now.
	Now func() time.Time
}

// StepResult describes what one invocation did and what the operator should
// do next.
type StepResult struct {
	RunID            string
	Stage            Stage
	ExtractedAccount string
	RunComplete      bool
	NextAction       string
}

// Step runs the next pending stage of the current run, starting a new run
// if none is active. Extraction handles exactly one account and then stops
// unless it was the last one; reconciliation chains into analysis within
// the same invocation. Analysis completes the run and deletes the marker.
func (c *Controller) Step(ctx context.Context) (*StepResult, error) {
	st, err := c.loadOrCreateRun(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.checkConsistency(st); err != nil {
		return nil, err
	}
	ctx = logctx.WithStr(ctx, "run_id", st.RunID)

	if _, err := fileutil.CleanupTmpFiles(c.runDir(st.RunID)); err != nil {
		return nil, fmt.Errorf("clean up interrupted writes: %w", err)
	}

	if account, ok := st.NextAccount(); ok {
		res, err := c.extractAccount(ctx, st, account)
		if err != nil || res != nil {
			return res, err
		}
		// Last account done: continue into reconciliation below.
	}

	table, err := c.reconcileAll(ctx, st)
	if err != nil {
		return nil, err
	}

	return c.analyzeTable(ctx, st, table)
}

func (c *Controller) loadOrCreateRun(ctx context.Context) (*State, error) {
	log := logctx.FromContext(ctx)

	runID, err := c.currentRunID()
	if err != nil {
		return nil, err
	}
	if runID != "" {
		return c.loadState(runID)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	st := &State{
		RunID:    now().UTC().Format(runIDLayout),
		Accounts: c.Locations.AccountNames(),
	}
	if err := os.MkdirAll(c.runDir(st.RunID), 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	if err := c.saveState(st); err != nil {
		return nil, err
	}
	if err := c.writeMarker(st.RunID); err != nil {
		return nil, err
	}
	log.Info().Str("run_id", st.RunID).Strs("accounts", st.Accounts).Msg("starting new run")
	return st, nil
}

// extractAccount extracts one account. It returns a nil result when the
// last account was just finished and the caller should continue into
// reconciliation within the same invocation.
func (c *Controller) extractAccount(ctx context.Context, st *State, name string) (*StepResult, error) {
	ctx = logctx.WithStr(ctx, "stage", string(StageExtraction))
	log := logctx.FromContext(ctx)
	start := time.Now()

	account, ok := c.Locations.Account(name)
	if !ok {
		return nil, fmt.Errorf("account %q is in the run state but not in the location list", name)
	}

	log.Info().Str("account", name).Int("queries", len(account.Queries)).Msg("extracting account")
	inv, err := c.Extract(ctx, account)
	if err != nil {
		// Nothing was written: the extractor only hands back a complete
		// inventory, and WriteFile publishes atomically.
		return nil, fmt.Errorf("extract account %q: %w", name, err)
	}

	if err := inventory.WriteFile(c.InventoryPath(st.RunID, name), inv); err != nil {
		return nil, fmt.Errorf("store inventory for account %q: %w", name, err)
	}

	st.Extracted = append(st.Extracted, name)
	if err := c.saveState(st); err != nil {
		return nil, err
	}
	log.Info().Str("account", name).Int("rows", len(inv.Rows)).Dur("took", time.Since(start)).Msg("account extracted")

	if next, more := st.NextAccount(); more {
		return &StepResult{
			RunID:            st.RunID,
			Stage:            StageExtraction,
			ExtractedAccount: name,
			NextAction:       fmt.Sprintf("switch to the credentials of account %q and run again", next),
		}, nil
	}
	return nil, nil
}

func (c *Controller) reconcileAll(ctx context.Context, st *State) (*reconcile.Table, error) {
	ctx = logctx.WithStr(ctx, "stage", string(StageReconciliation))
	log := logctx.FromContext(ctx)

	if st.Merged {
		// A previous invocation already reconciled; reload for analysis.
		return reconcile.ReadFile(c.MergedPath(st.RunID))
	}

	invs := make([]inventory.AccountInventory, 0, len(c.Locations.Accounts))
	mappings := make(map[string]reconcile.Mapping)
	for _, account := range c.Locations.Accounts {
		inv, err := inventory.ReadFile(c.InventoryPath(st.RunID, account.Name), account.Name)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)

		for _, pair := range account.URIMap {
			mappings[account.Name] = append(mappings[account.Name],
				reconcile.Pair{Origin: pair.Origin, Account: pair.Account})
		}
	}

	table, err := reconcile.Build(invs, mappings)
	if err != nil {
		return nil, err
	}
	if err := reconcile.WriteFile(c.MergedPath(st.RunID), table); err != nil {
		return nil, err
	}

	st.Merged = true
	if err := c.saveState(st); err != nil {
		return nil, err
	}
	log.Info().Int("rows", len(table.Rows)).Int("accounts", len(table.Accounts)).Msg("inventories reconciled")
	return table, nil
}

func (c *Controller) analyzeTable(ctx context.Context, st *State, table *reconcile.Table) (*StepResult, error) {
	ctx = logctx.WithStr(ctx, "stage", string(StageAnalysis))
	log := logctx.FromContext(ctx)

	if c.Analysis == nil {
		log.Info().Msg("no analysis relationships configured; completing run without analysis")
		if err := c.completeRun(); err != nil {
			return nil, err
		}
		return &StepResult{
			RunID:       st.RunID,
			Stage:       StageAnalysis,
			RunComplete: true,
			NextAction:  fmt.Sprintf("merged inventory is at %s; no analysis was configured", c.MergedPath(st.RunID)),
		}, nil
	}

	res, err := analyze.Apply(table, *c.Analysis)
	if err != nil {
		return nil, err
	}
	if err := analyze.WriteFile(c.AnalysisPath(st.RunID), res); err != nil {
		return nil, err
	}

	st.Analyzed = true
	if err := c.saveState(st); err != nil {
		return nil, err
	}
	if err := c.completeRun(); err != nil {
		return nil, err
	}

	log.Info().Int("rows", len(table.Rows)).Int("violations", res.Violations()).Msg("analysis complete")
	return &StepResult{
		RunID:       st.RunID,
		Stage:       StageAnalysis,
		RunComplete: true,
		NextAction:  fmt.Sprintf("analysis is at %s", c.AnalysisPath(st.RunID)),
	}, nil
}

// completeRun deletes the run marker so the next invocation starts fresh.
func (c *Controller) completeRun() error {
	if err := fileutil.RemoveIfExists(c.markerPath()); err != nil {
		return fmt.Errorf("remove run marker: %w", err)
	}
	return nil
}
