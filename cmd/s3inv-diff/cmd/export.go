package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mbrode/s3-inv-diff/pkg/export"
	"github.com/mbrode/s3-inv-diff/pkg/fileutil"
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Convert a run's CSV outputs to Parquet",
	Long: `Converts the merged inventory and, if present, the analysis of the given
run to Parquet files next to the CSV originals.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := newController()
		if err != nil {
			return err
		}
		runID := args[0]

		exported := 0
		for _, csvPath := range []string{ctrl.MergedPath(runID), ctrl.AnalysisPath(runID)} {
			if !fileutil.IsNonEmpty(csvPath) {
				continue
			}
			parquetPath := strings.TrimSuffix(csvPath, ".csv") + ".parquet"
			if err := export.File(csvPath, parquetPath); err != nil {
				return err
			}
			info("wrote %s", parquetPath)
			exported++
		}

		if exported == 0 {
			return fmt.Errorf("run %s has no merged inventory to export", runID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
