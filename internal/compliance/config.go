package compliance

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"wavecrest-planner/models"
)

var (
	// ErrInvalidTargetMix is returned when the pillar targets do not sum to
	// 100 or name an unknown pillar.
	ErrInvalidTargetMix = errors.New("invalid target mix")
	ErrInvalidConfig    = errors.New("invalid compliance config")
)

const mixEpsilon = 0.01

type Config struct {
	Targets     map[models.Pillar]float64 `yaml:"targets" json:"targets"`
	MaxGapDays  int                       `yaml:"max_gap_days" json:"max_gap_days"`
	Weekly      models.FrequencyRange     `yaml:"weekly" json:"weekly"`
	TolerancePP float64                   `yaml:"tolerance_pp" json:"tolerance_pp"`
}

func DefaultConfig() Config {
	return Config{
		Targets: map[models.Pillar]float64{
			models.PillarEducation:     30,
			models.PillarAffirming:     25,
			models.PillarCommunity:     20,
			models.PillarClientStory:   15,
			models.PillarTreatmentInfo: 10,
		},
		MaxGapDays:  3,
		Weekly:      models.FrequencyRange{Min: 3, Max: 4},
		TolerancePP: 5,
	}
}

// Validate checks the target mix first so a bad mix always surfaces as
// ErrInvalidTargetMix regardless of other problems.
func (c Config) Validate() error {
	if len(c.Targets) == 0 {
		return fmt.Errorf("%w: no targets configured", ErrInvalidTargetMix)
	}
	sum := 0.0
	for p, pct := range c.Targets {
		if !p.Valid() {
			return fmt.Errorf("%w: unknown pillar %q", ErrInvalidTargetMix, p)
		}
		if pct < 0 || math.IsNaN(pct) {
			return fmt.Errorf("%w: %s target %.2f is negative", ErrInvalidTargetMix, p, pct)
		}
		sum += pct
	}
	if math.Abs(sum-100) > mixEpsilon {
		return fmt.Errorf("%w: targets sum to %.2f, want 100", ErrInvalidTargetMix, sum)
	}
	if c.MaxGapDays < 1 {
		return fmt.Errorf("%w: max_gap_days must be at least 1", ErrInvalidConfig)
	}
	if c.Weekly.Min < 0 || c.Weekly.Max < 0 || (c.Weekly.Max > 0 && c.Weekly.Min > c.Weekly.Max) {
		return fmt.Errorf("%w: weekly range %d-%d", ErrInvalidConfig, c.Weekly.Min, c.Weekly.Max)
	}
	if c.TolerancePP < 0 {
		return fmt.Errorf("%w: tolerance_pp must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads a YAML target file over the defaults. An empty path or a
// missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read compliance config: %w", err)
	}
	return ParseConfig(raw)
}

// ParseConfig decodes YAML over the defaults. Pillar keys accept the long
// names used in the content calendar ("Affirming Messages").
func ParseConfig(raw []byte) (Config, error) {
	cfg := DefaultConfig()
	var file struct {
		Targets     map[string]float64     `yaml:"targets"`
		MaxGapDays  *int                   `yaml:"max_gap_days"`
		Weekly      *models.FrequencyRange `yaml:"weekly"`
		TolerancePP *float64               `yaml:"tolerance_pp"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(file.Targets) > 0 {
		cfg.Targets = make(map[models.Pillar]float64, len(file.Targets))
		for name, pct := range file.Targets {
			p, err := models.ParsePillar(name)
			if err != nil {
				return cfg, fmt.Errorf("%w: %v", ErrInvalidTargetMix, err)
			}
			cfg.Targets[p] += pct
		}
	}
	if file.MaxGapDays != nil {
		cfg.MaxGapDays = *file.MaxGapDays
	}
	if file.Weekly != nil {
		cfg.Weekly = *file.Weekly
	}
	if file.TolerancePP != nil {
		cfg.TolerancePP = *file.TolerancePP
	}
	return cfg, cfg.Validate()
}
