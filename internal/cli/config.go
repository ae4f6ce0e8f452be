package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/syssam/loom/compiler/gen"
)

// Settings are the resolved options of a gen run. Each value comes from, in
// order of precedence, a command line flag, a LOOM_* environment variable,
// loom.yaml, or the flag default.
type Settings struct {
	Model      string   `mapstructure:"model"`
	Module     string   `mapstructure:"module"`
	Output     string   `mapstructure:"out"`
	Target     string   `mapstructure:"target"`
	ID         string   `mapstructure:"id"`
	Ownership  string   `mapstructure:"ownership"`
	Persist    bool     `mapstructure:"persist"`
	Timestamps bool     `mapstructure:"timestamps"`
	Format     string   `mapstructure:"format"`
	Derive     []string `mapstructure:"derive"`
	Use        []string `mapstructure:"use"`
	Always     bool     `mapstructure:"always"`
	Workers    int      `mapstructure:"workers"`
	Header     string   `mapstructure:"header"`
	Watch      bool     `mapstructure:"watch"`
	Verbose    bool     `mapstructure:"verbose"`
}

// LoadSettings resolves the settings of cmd. When configFile is empty,
// loom.yaml is looked up in the working directory and may be absent.
func LoadSettings(cmd *cobra.Command, configFile string) (*Settings, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("loom")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No loom.yaml - flags, env and defaults only
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &s, nil
}

// Options converts the settings into generator options.
func (s *Settings) Options() ([]gen.Option, error) {
	target, err := gen.ParseTarget(s.Target)
	if err != nil {
		return nil, err
	}
	id, err := gen.ParseIDStrategy(s.ID)
	if err != nil {
		return nil, err
	}
	ownership, err := gen.ParseOwnership(s.Ownership)
	if err != nil {
		return nil, err
	}
	opts := []gen.Option{
		gen.WithTarget(target),
		gen.WithIDStrategy(id),
		gen.WithOwnership(ownership),
		gen.WithPersist(s.Persist),
		gen.WithPersistTimestamps(s.Timestamps),
		gen.WithPersistFormat(s.Format),
		gen.WithDeriveList(s.Derive...),
		gen.WithUsePaths(s.Use...),
		gen.WithAlwaysProcess(s.Always),
		gen.WithWorkers(s.Workers),
	}
	if s.Header != "" {
		opts = append(opts, gen.WithHeader(s.Header))
	}
	return opts, nil
}
