package log

import (
	"github.com/pkg/errors"
)

// PipelineCfg represents the logging pipeline configuration for the emulator
// host. It is decoded from the host's config file (mapstructure tags) and
// normalized by Validate before use.
type PipelineCfg struct {
	// Level is the process-wide severity threshold name (error, warn, info,
	// debug, verbose). Calls below the threshold are discarded before any
	// rendering. Adjustable at runtime via Pipeline.SetLevel.
	Level string `mapstructure:"level"`

	// QueueCapacity bounds the log queue. A full queue suspends producers
	// (backpressure) rather than dropping entries; the bound protects memory,
	// not latency.
	QueueCapacity int `mapstructure:"queueCapacity"`

	// TagPrefix, when set, is prepended to every worker tag in platform sink
	// output, distinguishing pipeline traffic from the host's own platform
	// logging (e.g. "emu-go-"). Empty by default: sink tags are the bare
	// worker tags.
	TagPrefix string `mapstructure:"tagPrefix"`

	// EmulationLogPath, when set, initializes the emulation context's backing
	// file at startup. The host may also initialize contexts explicitly later.
	EmulationLogPath string `mapstructure:"emulationLogPath"`

	// LoaderLogPath, when set, initializes the loader context's backing file
	// at startup.
	LoaderLogPath string `mapstructure:"loaderLogPath"`

	threshold Level
}

// Validate validates the configuration, applies defaults for missing values,
// and resolves the severity threshold.
func (cfg *PipelineCfg) Validate() error {
	if cfg.Level == "" {
		cfg.Level = "verbose"
	}
	lv, ok := levelFromString(cfg.Level)
	if !ok {
		return errors.Errorf("invalid log level %q, must be one of error, warn, info, debug, verbose", cfg.Level)
	}
	cfg.threshold = lv

	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = 1024
	}
	if cfg.QueueCapacity < 0 {
		return errors.Errorf("queue capacity must be positive, got %d", cfg.QueueCapacity)
	}

	return nil
}

// Threshold returns the severity threshold resolved by Validate.
func (cfg *PipelineCfg) Threshold() Level {
	return cfg.threshold
}

// DefaultCfg returns the default pipeline configuration: verbose threshold,
// 1024-entry queue, bare sink tags, no context files opened at startup.
func DefaultCfg() *PipelineCfg {
	return &PipelineCfg{
		Level:         "verbose",
		QueueCapacity: 1024,
	}
}
