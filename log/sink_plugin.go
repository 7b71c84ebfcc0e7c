package log

import (
	"github.com/halcyon-emu/halcyon/plugin"
)

// Sink plugin factories let the host config choose the platform sink
// implementation by name.

// SinkCfg is the (currently empty beyond the instance tag) configuration
// shared by the built-in sinks.
type SinkCfg struct {
	Tag string `mapstructure:"tag"`
}

// StderrSinkFactory builds the stderr platform sink as a plugin.
type StderrSinkFactory struct{}

// Type returns the plugin type.
func (f *StderrSinkFactory) Type() plugin.Type { return plugin.Sink }

// Name returns the name of the plugin implementation.
func (f *StderrSinkFactory) Name() string { return "stderr" }

// ConfigType returns the sink's configuration struct for mapstructure decoding.
func (f *StderrSinkFactory) ConfigType() any { return &SinkCfg{} }

// Setup initializes a stderr sink instance.
func (f *StderrSinkFactory) Setup(any) (plugin.Plugin, error) {
	return NewStderrSink(), nil
}

// Destroy is a no-op; the stderr sink holds no resources.
func (f *StderrSinkFactory) Destroy(plugin.Plugin) {}

// FactoryName identifies the factory that built this sink.
func (s *StderrSink) FactoryName() string { return "stderr" }

// DiscardSinkFactory builds the discarding platform sink as a plugin.
type DiscardSinkFactory struct{}

// Type returns the plugin type.
func (f *DiscardSinkFactory) Type() plugin.Type { return plugin.Sink }

// Name returns the name of the plugin implementation.
func (f *DiscardSinkFactory) Name() string { return "discard" }

// ConfigType returns the sink's configuration struct for mapstructure decoding.
func (f *DiscardSinkFactory) ConfigType() any { return &SinkCfg{} }

// Setup initializes a discard sink instance.
func (f *DiscardSinkFactory) Setup(any) (plugin.Plugin, error) {
	return NewDiscardSink(), nil
}

// Destroy is a no-op; the discard sink holds no resources.
func (f *DiscardSinkFactory) Destroy(plugin.Plugin) {}

// FactoryName identifies the factory that built this sink.
func (s *DiscardSink) FactoryName() string { return "discard" }
