// Package config loads run settings. Every field has a default, so a run
// with no config file and no environment behaves the same as the built-in
// values.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"

	"kctlinit/pkg/protocol"
)

const (
	DefaultService     = "com.apple.flow-divert"
	DefaultConfigName  = "kctlinit"
	DefaultJournalFile = "journal.db"
	EnvPrefix          = "KCTLINIT"
)

type Config struct {
	Service     string `mapstructure:"service"`      // control name passed to CTLIOCGINFO
	Unit        uint64 `mapstructure:"unit"`         // 0 lets the kernel pick a unit; must fit in sc_unit
	KeySize     int    `mapstructure:"key_size"`     // token key length in bytes
	MaxWrites   uint64 `mapstructure:"max_writes"`   // 0 means unbounded
	ReportEvery uint64 `mapstructure:"report_every"` // progress log interval in writes, 0 disables
	LogLevel    string `mapstructure:"log_level"`
	Journal     bool   `mapstructure:"journal"`      // mirror logs to the SQLite journal
	JournalFile string `mapstructure:"journal_file"` // relative to the app dir unless absolute
	ConfigFile  string `mapstructure:"-"`            // file actually read, if any
}

func DefaultConfig() *Config {
	return &Config{
		Service:     DefaultService,
		Unit:        0,
		KeySize:     protocol.MaxKeySize,
		MaxWrites:   0,
		ReportEvery: 100000,
		LogLevel:    "info",
		Journal:     false,
		JournalFile: DefaultJournalFile,
	}
}

// Load reads defaults, then the config file, then KCTLINIT_* environment
// variables. An explicit path must exist; without one, kctlinit.yaml is
// looked up in the working directory and ~/.kctlinit and may be absent.
func Load(path string) (*Config, error) {
	def := DefaultConfig()
	v := viper.New()
	v.SetDefault("service", def.Service)
	v.SetDefault("unit", def.Unit)
	v.SetDefault("key_size", def.KeySize)
	v.SetDefault("max_writes", def.MaxWrites)
	v.SetDefault("report_every", def.ReportEvery)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("journal", def.Journal)
	v.SetDefault("journal_file", def.JournalFile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.kctlinit")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", describe(path), err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	return cfg, nil
}

func describe(path string) string {
	if path == "" {
		return DefaultConfigName + ".yaml"
	}
	return path
}

// SCUnit returns Unit as the sc_unit value. Only valid after Validate.
func (c *Config) SCUnit() uint32 {
	return uint32(c.Unit)
}

// Validate checks the values a run depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Service) == "" {
		return errors.New("config: service name is required")
	}
	if c.Unit > math.MaxUint32 {
		return fmt.Errorf("config: unit must be within 0..%d, got %d", uint32(math.MaxUint32), c.Unit)
	}
	if c.KeySize <= 0 || c.KeySize > protocol.MaxKeySize {
		return fmt.Errorf("config: key_size must be within 1..%d, got %d", protocol.MaxKeySize, c.KeySize)
	}
	if c.Journal && strings.TrimSpace(c.JournalFile) == "" {
		return errors.New("config: journal_file is required when journal is enabled")
	}
	return nil
}
