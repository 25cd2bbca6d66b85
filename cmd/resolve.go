package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/imgreader/internal/location"
	"github.com/lehigh-university-libraries/imgreader/internal/models"
	"github.com/lehigh-university-libraries/imgreader/internal/settings"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newResolveCmd() *cobra.Command {
	var (
		settingsFile string
		noAuth       bool
		rf           resolverFlags
	)

	cmd := &cobra.Command{
		Use:   "resolve <uri>...",
		Short: "Show which resolver serves each URI and where it points",
		Args:  cobra.MinimumNArgs(1),
		Example: `  imgreader resolve /data/a.png https://example.org/b.jpg s3://bucket/c.tif

  # Resolve without the credentials from the environment
  imgreader resolve --no-auth gs://bucket/d.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rf.service()
			if err != nil {
				return err
			}

			st := settings.Default()
			if settingsFile != "" {
				if st, err = settings.Load(settingsFile); err != nil {
					return err
				}
			}
			var creds *location.Credentials
			if !noAuth {
				creds = credentials(st)
			}

			results := make([]models.Resolution, 0, len(args))
			failed := 0
			for _, raw := range args {
				res := svc.Resolve(cmd.Context(), raw, creds)
				if res.Error != "" {
					failed++
				}
				results = append(results, res)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(results); err != nil {
				return fmt.Errorf("failed to encode results: %w", err)
			}
			if err := enc.Close(); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d identifiers could not be resolved", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&settingsFile, "settings", "", "YAML settings file (for its credentials block)")
	cmd.Flags().BoolVar(&noAuth, "no-auth", false, "Ignore configured credentials")
	rf.register(cmd.Flags())

	return cmd
}
