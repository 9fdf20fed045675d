package cmd

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the next pending stage of the current run",
	Long: `Runs one pipeline step under the current credentials: extraction of the
next account, or, once all accounts are extracted, reconciliation and
analysis. Starts a new run when none is active.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := newController()
		if err != nil {
			return err
		}

		res, err := ctrl.Step(commandContext(cmd.Context()))
		if err != nil {
			return err
		}

		if res.ExtractedAccount != "" {
			info("run %s: extracted account %q", res.RunID, res.ExtractedAccount)
		}
		if res.RunComplete {
			info("run %s: complete", res.RunID)
		}
		if res.NextAction != "" {
			info("next: %s", res.NextAction)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
