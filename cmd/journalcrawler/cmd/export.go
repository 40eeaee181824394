package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LouYuanbo1/journalcrawler/internal/infra/persistence/journal"
	"github.com/LouYuanbo1/journalcrawler/internal/service/dataset"
)

var (
	exportRunID string
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Rebuild the dataset file from the row journal",
	Long: `Read the rows journaled by "run" and write them to a table file.
Without --run the most recent run is exported. The format follows the file
extension of --out (default output.path): .xlsx, .csv or .md.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := exportOut
		if out == "" {
			out = appcfg.Output.Path
		}
		n, err := exportJournal(cmd.Context(), appcfg.Output.JournalDB, exportRunID, out, appcfg.Output.Sheet)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", n, out)
		return nil
	},
}

func exportJournal(ctx context.Context, dbPath, runID, out, sheet string) (int, error) {
	if dbPath == "" {
		return 0, fmt.Errorf("output.journal_db is not configured")
	}
	j, err := journal.Open(ctx, dbPath)
	if err != nil {
		return 0, err
	}
	defer j.Close()

	if runID == "" {
		if runID, err = j.LatestRun(ctx); err != nil {
			return 0, err
		}
	}
	rows, err := j.Rows(ctx, runID)
	if err != nil {
		return 0, err
	}

	ds := dataset.Empty()
	for _, row := range rows {
		ds = ds.AppendRow(row)
	}
	if err := dataset.Export(out, sheet, ds.Finalize()); err != nil {
		return 0, err
	}
	return ds.Len(), nil
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "run id to export (default: latest)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: output.path)")
	rootCmd.AddCommand(exportCmd)
}
