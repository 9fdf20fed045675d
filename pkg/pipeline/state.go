// Package pipeline sequences the reconciliation stages across separate
// process invocations. Each account is reachable only under its own
// credentials, so a full run spans several invocations; the controller
// durably records how far it got in an explicit state file and runs exactly
// one credential scope's worth of work per invocation.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mbrode/s3-inv-diff/pkg/fileutil"
)

const (
	// markerFileName sits beside the run directories and records which
	// run is current. Its deletion signals run completion.
	markerFileName = "current_run"

	stateFileName    = "state.json"
	mergedFileName   = "merged_inventory.csv"
	analysisFileName = "analysis.csv"

	// runIDLayout formats the run timestamp that names the run directory.
	runIDLayout = "20060102-150405"
)

// State is the persisted progress record of one run. It is written
// atomically after every completed stage and read once per invocation.
type State struct {
	RunID     string   `json:"run_id"`
	Accounts  []string `json:"accounts"`
	Extracted []string `json:"extracted"`
	Merged    bool     `json:"merged"`
	Analyzed  bool     `json:"analyzed"`
}

// NextAccount returns the first configured account not yet extracted.
func (s *State) NextAccount() (string, bool) {
	for _, account := range s.Accounts {
		if !slices.Contains(s.Extracted, account) {
			return account, true
		}
	}
	return "", false
}

func inventoryFileName(account string) string {
	return "inventory_" + account + ".csv"
}

func (c *Controller) markerPath() string {
	return filepath.Join(c.ResultsDir, markerFileName)
}

func (c *Controller) runDir(runID string) string {
	return filepath.Join(c.ResultsDir, runID)
}

func (c *Controller) statePath(runID string) string {
	return filepath.Join(c.runDir(runID), stateFileName)
}

// InventoryPath returns the per-account inventory file of a run.
func (c *Controller) InventoryPath(runID, account string) string {
	return filepath.Join(c.runDir(runID), inventoryFileName(account))
}

// MergedPath returns the merged inventory file of a run.
func (c *Controller) MergedPath(runID string) string {
	return filepath.Join(c.runDir(runID), mergedFileName)
}

// AnalysisPath returns the analysis file of a run.
func (c *Controller) AnalysisPath(runID string) string {
	return filepath.Join(c.runDir(runID), analysisFileName)
}

// currentRunID reads the marker file. Empty string means no run is active.
func (c *Controller) currentRunID() (string, error) {
	data, err := os.ReadFile(c.markerPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read run marker: %w", err)
	}
	runID := strings.TrimSpace(string(data))
	if runID == "" {
		return "", fmt.Errorf("run marker %s is empty; remove it to start a fresh run", c.markerPath())
	}
	return runID, nil
}

func (c *Controller) writeMarker(runID string) error {
	return fileutil.WriteTmpThenMove(c.markerPath(), func(tmpPath string) error {
		return os.WriteFile(tmpPath, []byte(runID+"\n"), 0o644)
	})
}

func (c *Controller) loadState(runID string) (*State, error) {
	data, err := os.ReadFile(c.statePath(runID))
	if err != nil {
		return nil, fmt.Errorf("run %s has no readable state file; remove %s and the run directory to start over: %w",
			runID, c.markerPath(), err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state file for run %s: %w", runID, err)
	}
	return &st, nil
}

func (c *Controller) saveState(st *State) error {
	return fileutil.WriteTmpThenMove(c.statePath(st.RunID), func(tmpPath string) error {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("encode state: %w", err)
		}
		return os.WriteFile(tmpPath, append(data, '\n'), 0o644)
	})
}

// checkConsistency verifies that the state record and the files on disk
// agree. Outputs are published atomically, so any divergence means the run
// directory was tampered with or partially deleted.
func (c *Controller) checkConsistency(st *State) error {
	if !slices.Equal(st.Accounts, c.Locations.AccountNames()) {
		return fmt.Errorf("run %s was started with accounts %v but the location list now has %v; finish the run with the original configuration or remove %s",
			st.RunID, st.Accounts, c.Locations.AccountNames(), c.markerPath())
	}
	for _, account := range st.Extracted {
		if path := c.InventoryPath(st.RunID, account); !fileutil.IsNonEmpty(path) {
			return fmt.Errorf("state says account %q is extracted but %s is missing; remove the run directory and %s to start over",
				account, path, c.markerPath())
		}
	}
	if st.Merged && !fileutil.IsNonEmpty(c.MergedPath(st.RunID)) {
		return fmt.Errorf("state says reconciliation is done but %s is missing; remove the run directory and %s to start over",
			c.MergedPath(st.RunID), c.markerPath())
	}
	return nil
}
