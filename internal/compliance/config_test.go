package compliance

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"wavecrest-planner/models"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestParseConfigAcceptsLongPillarNames(t *testing.T) {
	raw := []byte(`
targets:
  Education: 40
  Affirming Messages: 20
  Community: 20
  Client Stories: 10
  Treatment Info: 10
max_gap_days: 2
weekly: {min: 4, max: 6}
`)
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Targets[models.PillarAffirming] != 20 || cfg.Targets[models.PillarClientStory] != 10 {
		t.Fatalf("unexpected targets %v", cfg.Targets)
	}
	if cfg.MaxGapDays != 2 || cfg.Weekly.Max != 6 || cfg.TolerancePP != 5 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestParseConfigRejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"sum", "targets: {Education: 60, Community: 30}", ErrInvalidTargetMix},
		{"unknown pillar", "targets: {Education: 90, Memes: 10}", ErrInvalidTargetMix},
		{"gap", "max_gap_days: 0", ErrInvalidConfig},
		{"weekly", "weekly: {min: 5, max: 2}", ErrInvalidConfig},
		{"yaml", "targets: [", ErrInvalidConfig},
	}
	for _, tc := range cases {
		if _, err := ParseConfig([]byte(tc.raw)); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxGapDays != 3 || cfg.Targets[models.PillarEducation] != 30 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}

	path := filepath.Join(t.TempDir(), "compliance.yaml")
	if err := os.WriteFile(path, []byte("tolerance_pp: 2.5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadConfig(path)
	if err != nil || cfg.TolerancePP != 2.5 {
		t.Fatalf("LoadConfig from file: %+v, %v", cfg, err)
	}
}
