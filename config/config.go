// Package config loads the host configuration from a YAML file and the
// environment, and can rebind it on change for hot-reloadable settings such
// as the log severity threshold.
package config

import (
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Options controls where the configuration is read from.
type Options struct {
	// BasePath is the directory searched for the config file. Defaults to
	// $CONFIG_PATH, then "config".
	BasePath string
	// FileName is the config file name without extension. Defaults to "halcyon".
	FileName string
	// FileType is the config file format. Defaults to "yaml".
	FileType string
	// EnvPrefix, when set, binds environment variables with this prefix over
	// file values (dots in keys map to underscores).
	EnvPrefix string
	// Watch enables rebinding the bound struct when the file changes.
	Watch bool
	// OnChange is invoked after a successful rebind.
	OnChange func()
}

// DefaultOptions returns the standard host lookup locations.
func DefaultOptions() Options {
	basePath := os.Getenv("CONFIG_PATH")
	if basePath == "" {
		basePath = "config"
	}
	return Options{
		BasePath: basePath,
		FileName: "halcyon",
		FileType: "yaml",
	}
}

// Config wraps a viper instance bound to one configuration file.
type Config struct {
	instance *viper.Viper
	opts     Options

	watchMutex sync.Mutex
	watchOnce  sync.Once
}

// New reads the configuration file described by opts. A missing file is not
// an error; the bound struct then carries only env and default values.
func New(opts Options) (*Config, error) {
	v := viper.New()
	v.SetConfigName(opts.FileName)
	v.SetConfigType(opts.FileType)
	v.AddConfigPath(opts.BasePath)

	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrapf(err, "read config %s/%s.%s", opts.BasePath, opts.FileName, opts.FileType)
		}
	}

	return &Config{instance: v, opts: opts}, nil
}

// Bind unmarshals the loaded configuration into instance. With Watch enabled,
// the same instance is re-unmarshaled whenever the file changes and OnChange
// fires afterwards; callers must treat the bound struct as read-mostly and
// copy values they cannot tolerate changing underfoot.
func (c *Config) Bind(instance any) error {
	if instance == nil {
		return errors.New("config bind target is nil")
	}

	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	if err := c.instance.Unmarshal(instance); err != nil {
		return errors.Wrapf(err, "unmarshal config %s/%s.%s", c.opts.BasePath, c.opts.FileName, c.opts.FileType)
	}

	if c.opts.Watch {
		c.watchOnce.Do(func() {
			c.instance.WatchConfig()
			c.instance.OnConfigChange(func(fsnotify.Event) {
				c.watchMutex.Lock()
				defer c.watchMutex.Unlock()

				if err := c.instance.Unmarshal(instance); err != nil {
					return
				}
				if c.opts.OnChange != nil {
					c.opts.OnChange()
				}
			})
		})
	}

	return nil
}

// Get returns a raw configuration value by key, mostly useful in tests.
func (c *Config) Get(key string) any {
	return c.instance.Get(key)
}
