package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbrode/s3-inv-diff/pkg/humanfmt"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the current run",
	Long: `Shows which accounts of the active run are extracted and whether the
merged inventory and the analysis exist yet. Read-only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := newController()
		if err != nil {
			return err
		}

		status, err := ctrl.Status()
		if err != nil {
			return err
		}
		if !status.Active {
			info("no active run")
			return nil
		}

		info("run %s", status.RunID)
		fmt.Printf("%-20s %-12s %s\n", "ACCOUNT", "EXTRACTED", "SIZE")
		for _, acct := range status.Accounts {
			extracted := "pending"
			size := ""
			if acct.Extracted {
				extracted = "yes"
				size = humanfmt.Bytes(acct.FileBytes)
			}
			fmt.Printf("%-20s %-12s %s\n", acct.Name, extracted, size)
		}

		if status.Merged {
			info("merged inventory: %s", humanfmt.Bytes(status.MergedBytes))
		} else {
			info("merged inventory: pending")
		}
		if status.Analyzed {
			info("analysis: %s", humanfmt.Bytes(status.AnalysisBytes))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
