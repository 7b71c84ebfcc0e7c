package halcyon

import (
	"sync"
	"time"

	"github.com/halcyon-emu/halcyon/config"
	"github.com/halcyon-emu/halcyon/event"
	"github.com/halcyon-emu/halcyon/log"
	"github.com/halcyon-emu/halcyon/metrics"
	"github.com/halcyon-emu/halcyon/plugin"
)

// Cfg is the host configuration root, typically bound from the config package.
type Cfg struct {
	Log    log.PipelineCfg `mapstructure:"log"`
	Plugin map[string]any  `mapstructure:"plugin"`
}

// Halcyon is the core host struct, holding the logging pipeline and its
// supporting components.
type Halcyon struct {
	Pipeline      *log.Pipeline
	PluginManager *plugin.Manager
	Events        *event.Publisher

	// Config is set when the host was built by NewFromConfig.
	Config *config.Config
}

// New creates a host instance from the given configuration (nil means
// defaults): it registers the built-in plugin factories, sets up configured
// plugins, wires metric reporters and the platform sink, starts the logging
// pipeline's drain goroutine, and opens any context files named in the
// configuration.
func New(cfg *Cfg) (*Halcyon, error) {
	if cfg == nil {
		cfg = &Cfg{Log: *log.DefaultCfg()}
	}

	// 1. Plugins
	pm := plugin.NewManager()
	pm.RegisterFactory(&log.StderrSinkFactory{})
	pm.RegisterFactory(&log.DiscardSinkFactory{})
	pm.RegisterFactory(&metrics.PrometheusFactory{})
	if err := pm.SetupPlugins(cfg.Plugin); err != nil {
		return nil, err
	}

	// 2. Metric reporters
	var reporters []metrics.Reporter
	for _, ins := range pm.GetPluginsByType(plugin.Metrics) {
		if r, ok := ins.(metrics.Reporter); ok {
			reporters = append(reporters, r)
		}
	}
	metrics.SetMetricsReporters(reporters)

	// 3. Logging pipeline
	pipeline, err := log.NewPipeline(&cfg.Log)
	if err != nil {
		return nil, err
	}
	for _, ins := range pm.GetPluginsByType(plugin.Sink) {
		if s, ok := ins.(log.Sink); ok {
			pipeline.SetSink(s)
			break
		}
	}

	// 4. Lifecycle events
	events := event.NewPublisher()
	if err := events.NewTopic(event.ContextLifecycle, time.Second); err != nil {
		return nil, err
	}
	if err := events.NewTopic(event.ReloadConfig, time.Second); err != nil {
		return nil, err
	}
	pipeline.SetLifecycleFunc(func(contextName, transition string) {
		_ = events.Publish(event.ContextLifecycle, ContextTransition{
			Context:    contextName,
			Transition: transition,
		})
	})

	pipeline.Start()

	if cfg.Log.EmulationLogPath != "" {
		if err := pipeline.InitContext(pipeline.EmulationContext(), cfg.Log.EmulationLogPath); err != nil {
			return nil, err
		}
	}
	if cfg.Log.LoaderLogPath != "" {
		if err := pipeline.InitContext(pipeline.LoaderContext(), cfg.Log.LoaderLogPath); err != nil {
			return nil, err
		}
	}

	h := &Halcyon{
		Pipeline:      pipeline,
		PluginManager: pm,
		Events:        events,
	}

	w := pipeline.NamedWorker("Host")
	w.InfofNoPrefix("halcyon host initialized")
	return h, nil
}

// NewFromConfig loads the host configuration from disk and builds the host.
// With opts.Watch enabled, a change to the config file rebinds the severity
// threshold onto the running pipeline and republishes the configuration on the
// ReloadConfig topic; other settings require a restart.
func NewFromConfig(opts config.Options) (*Halcyon, error) {
	var (
		cfg Cfg
		mu  sync.Mutex
		h   *Halcyon
	)

	userOnChange := opts.OnChange
	opts.OnChange = func() {
		mu.Lock()
		host := h
		level := cfg.Log.Level
		mu.Unlock()
		if host == nil {
			return
		}
		host.Pipeline.SetLevel(log.ParseLevel(level))
		_ = host.Events.Publish(event.ReloadConfig, level)
		if userOnChange != nil {
			userOnChange()
		}
	}

	loader, err := config.New(opts)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	err = loader.Bind(&cfg)
	mu.Unlock()
	if err != nil {
		return nil, err
	}

	host, err := New(&cfg)
	if err != nil {
		return nil, err
	}
	host.Config = loader

	mu.Lock()
	h = host
	mu.Unlock()
	return host, nil
}

// ContextTransition is the payload published on the ContextLifecycle topic.
type ContextTransition struct {
	Context    string
	Transition string
}

// Stop drains and finalizes the logging pipeline, then tears down plugins.
// Entries enqueued after Stop only reach the platform sink.
func (h *Halcyon) Stop() {
	w := h.Pipeline.NamedWorker("Host")
	w.InfofNoPrefix("halcyon host shutting down")
	h.Pipeline.Close()
	h.PluginManager.DestroyPlugins()
}
