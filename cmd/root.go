package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/imgreader/internal/logging"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var logLevel, logFormat string

	cmd := &cobra.Command{
		Use:   "imgreader",
		Short: "Read the images referenced by a table into a new table",
		Long: `imgreader reads a table (parquet or CSV) with a column of image URIs,
resolves every URI to a local file, HTTP(S) resource, S3 object or Google
Cloud Storage object, decodes the image and writes an output table whose
image, metadata and series number columns follow the read settings.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			if !cmd.Flags().Changed("log-level") && os.Getenv("LOG_LEVEL") != "" {
				logLevel = os.Getenv("LOG_LEVEL")
			}
			if !cmd.Flags().Changed("log-format") && os.Getenv("LOG_FORMAT") != "" {
				logFormat = os.Getenv("LOG_FORMAT")
			}
			logging.Setup(logLevel, logFormat)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text or json)")

	cmd.AddCommand(newReadCmd())
	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
