package dap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SwdSettings are the timing/retry knobs a probe back-end reports. They are
// loadable from a YAML configuration file so a deployment can tune
// retry/idle behavior for a particular target without a rebuild.
type SwdSettings struct {
	NumIdleCyclesBetweenWrites  int `yaml:"num_idle_cycles_between_writes"`
	IdleCyclesBeforeWriteVerify int `yaml:"idle_cycles_before_write_verify"`
	IdleCyclesAfterTransfer     int `yaml:"idle_cycles_after_transfer"`
	NumRetriesAfterWait         int `yaml:"num_retries_after_wait"`
	MaxRetryIdleCyclesAfterWait int `yaml:"max_retry_idle_cycles_after_wait"`
}

// DefaultSettings returns the conservative defaults used when no
// configuration file is supplied.
func DefaultSettings() SwdSettings {
	return SwdSettings{
		NumIdleCyclesBetweenWrites:  8,
		IdleCyclesBeforeWriteVerify: 8,
		IdleCyclesAfterTransfer:     8,
		NumRetriesAfterWait:         100,
		MaxRetryIdleCyclesAfterWait: 3200,
	}
}

// settingsFile is the on-disk shape; it lets a config file override only
// some fields while DefaultSettings fills in the rest.
type settingsFile struct {
	SWD SwdSettings `yaml:"swd"`
}

// LoadSettings reads SwdSettings from a YAML file at path. Missing fields
// fall back to DefaultSettings.
func LoadSettings(path string) (SwdSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SwdSettings{}, fmt.Errorf("dap: reading settings file %s: %w", path, err)
	}

	settings := settingsFile{SWD: DefaultSettings()}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return SwdSettings{}, fmt.Errorf("dap: parsing settings file %s: %w", path, err)
	}

	return settings.SWD, nil
}
