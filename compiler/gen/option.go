package gen

import (
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/syssam/loom"
)

// Option configures code generation.
type Option func(*Config) error

// WithTarget sets the backend to compile with.
func WithTarget(t Target) Option {
	return func(c *Config) error {
		if int(t) >= len(targetNames) {
			return NewConfigError("Target", t, "unknown target")
		}
		c.Target = t
		return nil
	}
}

// WithModule sets the import path of the output root.
// For example: "example.com/shop/gen".
func WithModule(module string) Option {
	return func(c *Config) error {
		if module == "" {
			return NewConfigError("Module", nil, "module cannot be empty")
		}
		if strings.ContainsAny(module, " \t\\") {
			return NewConfigError("Module", module, "module must be a slash separated import path")
		}
		c.Module = module
		return nil
	}
}

// WithIDStrategy sets how constructors compute ids.
func WithIDStrategy(s IDStrategy) Option {
	return func(c *Config) error {
		if int(s) >= len(idNames) {
			return NewConfigError("IDStrategy", s, "unknown id strategy")
		}
		c.IDStrategy = s
		return nil
	}
}

// WithOwnership sets the element wrapper of the generated store.
func WithOwnership(o Ownership) Option {
	return func(c *Config) error {
		if int(o) >= len(ownershipNames) {
			return NewConfigError("Ownership", o, "unknown ownership")
		}
		c.Ownership = o
		return nil
	}
}

// WithPersist enables store persistence.
func WithPersist(on bool) Option {
	return func(c *Config) error {
		c.Persist = on
		return nil
	}
}

// WithPersistTimestamps enables intern timestamps. It implies WithPersist.
func WithPersistTimestamps(on bool) Option {
	return func(c *Config) error {
		c.PersistTimestamps = on
		if on {
			c.Persist = true
		}
		return nil
	}
}

// WithPersistFormat sets the codec of persisted collections.
// Supported formats: "json", "msgpack".
func WithPersistFormat(format string) Option {
	return func(c *Config) error {
		codec, err := loom.CodecByName(format)
		if err != nil {
			return NewConfigError("PersistFormat", format, "unsupported format; use json or msgpack")
		}
		c.PersistFormat = codec.Name()
		return nil
	}
}

// WithDeriveList adds struct tag keys emitted next to json on every field.
func WithDeriveList(keys ...string) Option {
	return func(c *Config) error {
		for _, k := range keys {
			if k == "" || k == "json" || strings.ContainsAny(k, " \t:\"`") {
				return NewConfigError("DeriveList", k, "invalid struct tag key")
			}
			if !slices.Contains(c.DeriveList, k) {
				c.DeriveList = append(c.DeriveList, k)
			}
		}
		return nil
	}
}

// WithUsePaths adds blank imports to every generated Go file.
func WithUsePaths(paths ...string) Option {
	return func(c *Config) error {
		for _, p := range paths {
			if p == "" {
				return NewConfigError("UsePaths", nil, "import path cannot be empty")
			}
			if !slices.Contains(c.UsePaths, p) {
				c.UsePaths = append(c.UsePaths, p)
			}
		}
		return nil
	}
}

// WithAlwaysProcess disables the fingerprint check.
func WithAlwaysProcess(on bool) Option {
	return func(c *Config) error {
		c.AlwaysProcess = on
		return nil
	}
}

// WithWorkers sets the size of the worker pool.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return NewConfigError("Workers", n, "workers cannot be negative")
		}
		c.Workers = n
		return nil
	}
}

// WithHeader sets the file header comment.
// The header is added at the top of each generated file.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithLogger sets the structured logger of the run.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a new Config with the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	c.defaults()
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}
