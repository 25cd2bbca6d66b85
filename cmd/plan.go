package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/imgreader/internal/reading"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPlanCmd() *cobra.Command {
	var (
		input string
		sf    settingsFlags
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the output columns a read would produce",
		Long: `Loads the input table and prints, as YAML, the negotiated output columns
for the given settings without resolving any URI.`,
		Example: `  imgreader plan --input books.csv --creation-mode append --metadata-mode append_metadata`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return fmt.Errorf("--input is required")
			}

			st, err := sf.load(cmd)
			if err != nil {
				return err
			}
			plan, err := reading.Plan(input, sf.keyColumn, st)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(plan); err != nil {
				return fmt.Errorf("failed to encode plan: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input table (.parquet or .csv)")
	sf.register(cmd.Flags())

	return cmd
}
