// Package settings holds the read configuration: which output columns to
// produce, how they relate to the input table, and how series are read.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/imgreader/internal/location"
	"gopkg.in/yaml.v3"
)

// MetadataMode selects whether image content, metadata, or both are read
type MetadataMode string

const (
	NoMetadata     MetadataMode = "no_metadata"
	AppendMetadata MetadataMode = "append_metadata"
	MetadataOnly   MetadataMode = "metadata_only"
)

// CreationMode governs how output columns relate to the input schema
type CreationMode string

const (
	NewTable CreationMode = "new_table"
	Append   CreationMode = "append"
	Replace  CreationMode = "replace"
)

// DefaultColumnSuffix is appended to new column names in append and replace mode
const DefaultColumnSuffix = "_read"

var (
	ErrUnsupportedMetadataMode = errors.New("unsupported metadata mode")
	ErrUnsupportedCreationMode = errors.New("unsupported column creation mode")
)

// ParseMetadataMode accepts the canonical names plus a few spellings used on
// the command line (e.g. "append-metadata", "MetadataOnly").
func ParseMetadataMode(s string) (MetadataMode, error) {
	switch normalize(s) {
	case "nometadata", "none", "":
		return NoMetadata, nil
	case "appendmetadata", "append":
		return AppendMetadata, nil
	case "metadataonly", "only":
		return MetadataOnly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMetadataMode, s)
}

// ParseCreationMode accepts the canonical names and common spellings
func ParseCreationMode(s string) (CreationMode, error) {
	switch normalize(s) {
	case "newtable", "new", "":
		return NewTable, nil
	case "append":
		return Append, nil
	case "replace":
		return Replace, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedCreationMode, s)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// EmitImage reports whether the mode reads image content
func (m MetadataMode) EmitImage() bool {
	return m == NoMetadata || m == AppendMetadata
}

// EmitMetadata reports whether the mode reads metadata
func (m MetadataMode) EmitMetadata() bool {
	return m == AppendMetadata || m == MetadataOnly
}

// Settings configures a read
type Settings struct {
	// URIColumn names the identifier column; empty means auto-detect
	URIColumn          string       `yaml:"uri_column" json:"uri_column,omitempty"`
	MetadataMode       MetadataMode `yaml:"metadata_mode" json:"metadata_mode"`
	AppendSeriesNumber bool         `yaml:"append_series_number" json:"append_series_number"`
	CreationMode       CreationMode `yaml:"creation_mode" json:"creation_mode"`
	ColumnSuffix       string       `yaml:"column_suffix" json:"column_suffix"`

	ReadAllSeries bool `yaml:"read_all_series" json:"read_all_series"`
	SeriesStart   int  `yaml:"series_start" json:"series_start"`
	// SeriesEnd is inclusive; negative means the last series
	SeriesEnd int `yaml:"series_end" json:"series_end"`

	Workers       int   `yaml:"workers" json:"workers"`
	MaxImageBytes int64 `yaml:"max_image_bytes" json:"max_image_bytes"`

	Credentials *location.Credentials `yaml:"credentials,omitempty" json:"-"`
}

// Default returns the default settings
func Default() Settings {
	return Settings{
		MetadataMode: NoMetadata,
		CreationMode: NewTable,
		ColumnSuffix: DefaultColumnSuffix,
		SeriesEnd:    -1,
		Workers:      4,
	}
}

// Load reads settings from a YAML file on top of the defaults
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return s, nil
}

// Validate normalizes enum spellings and checks value ranges
func (s *Settings) Validate() error {
	mm, err := ParseMetadataMode(string(s.MetadataMode))
	if err != nil {
		return err
	}
	s.MetadataMode = mm

	cm, err := ParseCreationMode(string(s.CreationMode))
	if err != nil {
		return err
	}
	s.CreationMode = cm

	if s.SeriesStart < 0 {
		return fmt.Errorf("series start must not be negative, got %d", s.SeriesStart)
	}
	if s.SeriesEnd >= 0 && s.SeriesEnd < s.SeriesStart {
		return fmt.Errorf("series end %d is before series start %d", s.SeriesEnd, s.SeriesStart)
	}
	if s.Workers < 1 {
		s.Workers = 1
	}
	if s.MaxImageBytes < 0 {
		return fmt.Errorf("max image bytes must not be negative, got %d", s.MaxImageBytes)
	}
	return nil
}
