package schedule

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eventtools/eventtools/schedule/recurrence"
)

// Config configures a Scheduler. Nil/zero fields are filled with defaults
// by New, so the zero value is usable.
type Config struct {
	// DefaultHorizon bounds generation for generators that have a rule but
	// no repeat-until: candidates are produced up to now+DefaultHorizon.
	DefaultHorizon time.Duration

	// RefreshCron is the cron schedule on which a Refresher re-syncs
	// boundless generators, e.g. "@hourly" or "30 3 * * *".
	RefreshCron string

	// Logger receives reconciliation logging. Defaults to a discard handler.
	Logger *slog.Logger

	// Clock supplies the current time. Defaults to the system clock.
	Clock Clock

	// Engine expands repetition rules. Defaults to a fresh engine with
	// recurrence.DefaultEngineConfig.
	Engine *recurrence.Engine
}

// DefaultConfig provides sensible defaults: a one-year rolling horizon,
// refreshed hourly.
var DefaultConfig = Config{
	DefaultHorizon: 365 * 24 * time.Hour,
	RefreshCron:    "@hourly",
}

// FileConfig is the YAML representation of the tunable parts of Config.
type FileConfig struct {
	// DefaultHorizonDays is the rolling generation horizon in days.
	DefaultHorizonDays int `yaml:"default_horizon_days"`

	// RefreshCron is a cron-style schedule string for horizon refreshes.
	RefreshCron string `yaml:"refresh"`
}

// DefaultFileConfig returns the on-disk defaults.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		DefaultHorizonDays: 365,
		RefreshCron:        DefaultConfig.RefreshCron,
	}
}

// Normalize fills in missing/zero values so partially-filled config files
// still behave correctly.
func (fc *FileConfig) Normalize() {
	if fc.DefaultHorizonDays <= 0 {
		fc.DefaultHorizonDays = 365
	}
	if fc.RefreshCron == "" {
		fc.RefreshCron = DefaultConfig.RefreshCron
	}
}

// Config converts the file form into a runtime Config.
func (fc FileConfig) Config() Config {
	fc.Normalize()
	return Config{
		DefaultHorizon: time.Duration(fc.DefaultHorizonDays) * 24 * time.Hour,
		RefreshCron:    fc.RefreshCron,
	}
}

// LoadConfig loads configuration from a YAML file. A missing file yields
// the defaults and writes them to the path so the first run produces an
// editable config.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fc := DefaultFileConfig()
			if err := SaveConfig(path, fc); err != nil {
				return fc.Config(), err
			}
			return fc.Config(), nil
		}
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return fc.Config(), nil
}

// SaveConfig writes the file form of the configuration to path.
func SaveConfig(path string, fc FileConfig) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	fc.Normalize()

	data, err := yaml.Marshal(fc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
