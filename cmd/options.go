package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/lehigh-university-libraries/imgreader/internal/location"
	"github.com/lehigh-university-libraries/imgreader/internal/reading"
	"github.com/lehigh-university-libraries/imgreader/internal/resolvers"
	"github.com/lehigh-university-libraries/imgreader/internal/settings"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resolverFlags configures the built-in resolvers
type resolverFlags struct {
	baseDir     string
	httpTimeout time.Duration
	s3Endpoint  string
	s3Region    string
	gcsEndpoint string
}

func (f *resolverFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.baseDir, "base-dir", "", "Directory relative file paths are resolved against")
	fs.DurationVar(&f.httpTimeout, "http-timeout", 30*time.Second, "Timeout for HTTP(S) image requests")
	fs.StringVar(&f.s3Endpoint, "s3-endpoint", getEnv("IMGREADER_S3_ENDPOINT", ""), "S3-compatible endpoint (default s3.amazonaws.com)")
	fs.StringVar(&f.s3Region, "s3-region", getEnv("IMGREADER_S3_REGION", ""), "S3 region")
	fs.StringVar(&f.gcsEndpoint, "gcs-endpoint", getEnv("IMGREADER_GCS_ENDPOINT", ""), "Google Cloud Storage endpoint override")
}

func (f *resolverFlags) service() (*reading.Service, error) {
	reg, err := resolvers.NewRegistry(resolvers.Options{
		BaseDir:     f.baseDir,
		HTTPTimeout: f.httpTimeout,
		S3Endpoint:  f.s3Endpoint,
		S3Region:    f.s3Region,
		GCSEndpoint: f.gcsEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register resolvers: %w", err)
	}
	return reading.NewService(reg), nil
}

// settingsFlags are the read settings. Flags override the settings file.
type settingsFlags struct {
	file string

	uriColumn    string
	metadataMode string
	creationMode string
	seriesNumber bool
	suffix       string
	allSeries    bool
	seriesStart  int
	seriesEnd    int
	workers      int
	maxBytes     int64
	keyColumn    string
}

func (f *settingsFlags) register(fs *pflag.FlagSet) {
	d := settings.Default()
	fs.StringVar(&f.file, "settings", "", "YAML settings file")
	fs.StringVar(&f.uriColumn, "uri-column", "", "Column holding the image URIs (auto-detected when empty)")
	fs.StringVar(&f.metadataMode, "metadata-mode", string(d.MetadataMode), "Metadata mode (no_metadata, append_metadata, metadata_only)")
	fs.StringVar(&f.creationMode, "creation-mode", string(d.CreationMode), "Column creation mode (new_table, append, replace)")
	fs.BoolVar(&f.seriesNumber, "series-number", d.AppendSeriesNumber, "Add a series number column")
	fs.StringVar(&f.suffix, "suffix", d.ColumnSuffix, "Suffix of new column names in append and replace mode")
	fs.BoolVar(&f.allSeries, "all-series", d.ReadAllSeries, "Read every series (animation frame) instead of the first")
	fs.IntVar(&f.seriesStart, "series-start", d.SeriesStart, "First series to read with --all-series")
	fs.IntVar(&f.seriesEnd, "series-end", d.SeriesEnd, "Last series to read with --all-series (-1 for the last one)")
	fs.IntVar(&f.workers, "workers", d.Workers, "Number of rows read in parallel")
	fs.Int64Var(&f.maxBytes, "max-bytes", d.MaxImageBytes, "Maximum bytes read per image (0 for the default limit)")
	fs.StringVar(&f.keyColumn, "key-column", "", "Input column holding row keys")
}

// load returns the settings file (or defaults) with changed flags applied
func (f *settingsFlags) load(cmd *cobra.Command) (settings.Settings, error) {
	s := settings.Default()
	if f.file != "" {
		var err error
		s, err = settings.Load(f.file)
		if err != nil {
			return s, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("uri-column") {
		s.URIColumn = f.uriColumn
	}
	if changed("metadata-mode") {
		s.MetadataMode = settings.MetadataMode(f.metadataMode)
	}
	if changed("creation-mode") {
		s.CreationMode = settings.CreationMode(f.creationMode)
	}
	if changed("series-number") {
		s.AppendSeriesNumber = f.seriesNumber
	}
	if changed("suffix") {
		s.ColumnSuffix = f.suffix
	}
	if changed("all-series") {
		s.ReadAllSeries = f.allSeries
	}
	if changed("series-start") {
		s.SeriesStart = f.seriesStart
	}
	if changed("series-end") {
		s.SeriesEnd = f.seriesEnd
	}
	if changed("workers") {
		s.Workers = f.workers
	}
	if changed("max-bytes") {
		s.MaxImageBytes = f.maxBytes
	}

	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// credentials returns the environment credentials, falling back to the
// settings file block
func credentials(s settings.Settings) *location.Credentials {
	if c := location.CredentialsFromEnv(); c != nil {
		return c
	}
	if s.Credentials.IsZero() {
		return nil
	}
	return s.Credentials
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
