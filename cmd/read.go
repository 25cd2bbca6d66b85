package cmd

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/imgreader/internal/reading"
	"github.com/lehigh-university-libraries/imgreader/internal/report"
	"github.com/spf13/cobra"
)

func newReadCmd() *cobra.Command {
	var (
		input, output string
		rowIDColumn   string
		reportPath    string
		sf            settingsFlags
		rf            resolverFlags
	)

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read the images referenced by a table",
		Long: `Reads every image referenced by the URI column of the input table and writes
the output table. Rows whose image cannot be resolved or decoded are logged and
left out of the output; the command fails only when every row fails.

Credentials for authenticated sources are read from IMGREADER_* environment
variables (or .env), or from the credentials block of the settings file.`,
		Example: `  # Read images into a new table
  imgreader read --input books.csv --output images.parquet

  # Replace the URI column with the image and append metadata
  imgreader read --input books.parquet --output out.parquet \
    --creation-mode replace --metadata-mode append_metadata

  # Read every frame of animated images
  imgreader read --input in.csv --output out.csv --all-series --series-number

  # Keep a YAML report of failed rows
  imgreader read --input in.csv --output out.csv --report run.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return fmt.Errorf("--input is required")
			}

			st, err := sf.load(cmd)
			if err != nil {
				return err
			}
			svc, err := rf.service()
			if err != nil {
				return err
			}

			run, err := svc.Execute(cmd.Context(), reading.Request{
				Input:       input,
				Output:      output,
				Settings:    st,
				KeyColumn:   sf.keyColumn,
				RowIDColumn: rowIDColumn,
				Credentials: credentials(st),
			})
			if run.Summary != nil {
				slog.Info("Read summary",
					"rows", run.Summary.Rows,
					"processed", run.Summary.Processed,
					"failed", run.Summary.Failed,
					"output_rows", run.Summary.OutputRows)
				if run.LastError != "" {
					slog.Warn("Latest row failure", "error", run.LastError)
				}
			}
			if reportPath != "" {
				if rerr := report.SaveToYAML(reportPath, run); rerr != nil {
					slog.Error("Failed to save report", "path", reportPath, "error", rerr)
				} else {
					slog.Info("Report saved", "path", reportPath)
				}
			}
			if err != nil {
				return err
			}

			if output == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Read %d of %d rows (%d failed)\n", run.Summary.Processed, run.Summary.Rows, run.Summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input table (.parquet or .csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output table (.parquet or .csv)")
	cmd.Flags().StringVar(&rowIDColumn, "row-id-column", "", "Write row keys to this leading output column")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a YAML run report to this path")
	sf.register(cmd.Flags())
	rf.register(cmd.Flags())

	return cmd
}
