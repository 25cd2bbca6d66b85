package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseMetadataMode(t *testing.T) {
	tests := []struct {
		in        string
		expected  MetadataMode
		wantImage bool
		wantMeta  bool
	}{
		{in: "no_metadata", expected: NoMetadata, wantImage: true},
		{in: "append-metadata", expected: AppendMetadata, wantImage: true, wantMeta: true},
		{in: "MetadataOnly", expected: MetadataOnly, wantMeta: true},
		{in: "", expected: NoMetadata, wantImage: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMetadataMode(tt.in)
			if err != nil {
				t.Fatalf("ParseMetadataMode failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
			if got.EmitImage() != tt.wantImage || got.EmitMetadata() != tt.wantMeta {
				t.Errorf("Unexpected emission flags for %s: image=%v metadata=%v", got, got.EmitImage(), got.EmitMetadata())
			}
		})
	}

	if _, err := ParseMetadataMode("everything"); !errors.Is(err, ErrUnsupportedMetadataMode) {
		t.Errorf("Expected ErrUnsupportedMetadataMode, got %v", err)
	}
}

func TestParseCreationMode(t *testing.T) {
	tests := map[string]CreationMode{
		"new_table": NewTable,
		"New Table": NewTable,
		"append":    Append,
		"REPLACE":   Replace,
	}
	for in, expected := range tests {
		got, err := ParseCreationMode(in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", in, err)
			continue
		}
		if got != expected {
			t.Errorf("%q: expected %s, got %s", in, expected, got)
		}
	}

	if _, err := ParseCreationMode("merge"); !errors.Is(err, ErrUnsupportedCreationMode) {
		t.Errorf("Expected ErrUnsupportedCreationMode, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	data := `uri_column: Location
metadata_mode: append_metadata
creation_mode: replace
append_series_number: true
workers: 8
credentials:
  access_key_id: AKIA
  secret_access_key: secret
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if s.URIColumn != "Location" {
		t.Errorf("Expected uri column Location, got %s", s.URIColumn)
	}
	if s.MetadataMode != AppendMetadata || s.CreationMode != Replace || !s.AppendSeriesNumber {
		t.Errorf("Unexpected settings: %+v", s)
	}
	// unset keys keep their defaults
	if s.ColumnSuffix != DefaultColumnSuffix {
		t.Errorf("Expected default suffix %s, got %s", DefaultColumnSuffix, s.ColumnSuffix)
	}
	if s.SeriesEnd != -1 {
		t.Errorf("Expected default series end -1, got %d", s.SeriesEnd)
	}
	if s.Credentials == nil || s.Credentials.AccessKeyID != "AKIA" {
		t.Errorf("Expected credentials to be loaded, got %v", s.Credentials)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Settings) {}},
		{name: "bad creation mode", mutate: func(s *Settings) { s.CreationMode = "merge" }, wantErr: true},
		{name: "bad metadata mode", mutate: func(s *Settings) { s.MetadataMode = "all" }, wantErr: true},
		{name: "negative series start", mutate: func(s *Settings) { s.SeriesStart = -1 }, wantErr: true},
		{name: "end before start", mutate: func(s *Settings) { s.SeriesStart = 3; s.SeriesEnd = 1 }, wantErr: true},
		{name: "zero workers clamps", mutate: func(s *Settings) { s.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if err == nil && s.Workers < 1 {
				t.Errorf("Expected workers >= 1, got %d", s.Workers)
			}
		})
	}
}
