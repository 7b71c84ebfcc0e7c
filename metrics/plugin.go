package metrics

import (
	"fmt"

	"github.com/halcyon-emu/halcyon/plugin"
)

// PrometheusFactory builds the Prometheus reporter as a metrics plugin.
type PrometheusFactory struct{}

// Type returns the plugin type.
func (f *PrometheusFactory) Type() plugin.Type {
	return plugin.Metrics
}

// Name returns the name of the plugin implementation.
func (f *PrometheusFactory) Name() string {
	return "prometheus"
}

// ConfigType returns an empty struct that represents the plugin's
// configuration, populated by the manager using mapstructure.
func (f *PrometheusFactory) ConfigType() any {
	return &PrometheusReporterConfig{}
}

// Setup initializes a reporter instance based on the configuration.
func (f *PrometheusFactory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*PrometheusReporterConfig)
	if !ok {
		return nil, fmt.Errorf("prometheus setup: unexpected config type %T", cfgAny)
	}
	return NewPrometheusReporter(cfg), nil
}

// Destroy stops the reporter.
func (f *PrometheusFactory) Destroy(p plugin.Plugin) {
	if prom, ok := p.(*PrometheusReporter); ok {
		prom.Stop()
	}
}

// FactoryName identifies the factory that built this reporter.
func (x *PrometheusReporter) FactoryName() string {
	return "prometheus"
}
