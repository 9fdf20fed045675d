package pipeline

import (
	"slices"

	"github.com/mbrode/s3-inv-diff/pkg/fileutil"
)

// AccountStatus is the extraction state of one account within a run.
type AccountStatus struct {
	Name      string
	Extracted bool
	FileBytes int64
}

// Status is a read-only snapshot of the current run.
type Status struct {
	Active        bool
	RunID         string
	Accounts      []AccountStatus
	Merged        bool
	MergedBytes   int64
	Analyzed      bool
	AnalysisBytes int64
}

// Status reports the state of the current run without mutating anything.
// A completed or never-started pipeline reports Active == false.
func (c *Controller) Status() (*Status, error) {
	runID, err := c.currentRunID()
	if err != nil {
		return nil, err
	}
	if runID == "" {
		return &Status{}, nil
	}

	st, err := c.loadState(runID)
	if err != nil {
		return nil, err
	}

	status := &Status{
		Active:        true,
		RunID:         st.RunID,
		Merged:        st.Merged,
		MergedBytes:   fileutil.FileSize(c.MergedPath(st.RunID)),
		Analyzed:      st.Analyzed,
		AnalysisBytes: fileutil.FileSize(c.AnalysisPath(st.RunID)),
	}
	for _, account := range st.Accounts {
		status.Accounts = append(status.Accounts, AccountStatus{
			Name:      account,
			Extracted: slices.Contains(st.Extracted, account),
			FileBytes: fileutil.FileSize(c.InventoryPath(st.RunID, account)),
		})
	}
	return status, nil
}
