// File: internal/config/config.go
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Default identity and filesystem locations for the certificate authority.
// These mirror the defaults printed in the CLI help text.
const (
	DefaultAuthorityName = "certmint intercepting proxy CA"
	DefaultRootFile      = "./certmint-ca.pem"
	DefaultCertsDir      = "./certmint-certs"
)

// Config holds the entire application configuration.
type Config struct {
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
	CA     CAConfig     `mapstructure:"ca" yaml:"ca"`
	Proxy  ProxyConfig  `mapstructure:"proxy" yaml:"proxy"`
}

// LoggerConfig controls the zap logger set up in internal/observability.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// CAConfig describes the root authority identity and where certificate
// material lives on disk.
type CAConfig struct {
	// Name is the common name placed on the root certificate.
	Name string `mapstructure:"name" yaml:"name"`
	// RootFile holds the root private key and certificate, key first.
	RootFile string `mapstructure:"root_file" yaml:"root_file"`
	// CertsDir is the per-host certificate cache directory.
	CertsDir string `mapstructure:"certs_dir" yaml:"certs_dir"`
	// Force regenerates material even when a file already exists.
	Force bool `mapstructure:"force" yaml:"force"`
}

// ProxyConfig configures the interception proxy started by `certmint serve`.
type ProxyConfig struct {
	Addr    string `mapstructure:"addr" yaml:"addr"`
	Verbose bool   `mapstructure:"verbose" yaml:"verbose"`
}

// NewDefaultConfig returns a Config populated purely from defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "certmint")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Certificate authority --
	v.SetDefault("ca.name", DefaultAuthorityName)
	v.SetDefault("ca.root_file", DefaultRootFile)
	v.SetDefault("ca.certs_dir", DefaultCertsDir)
	v.SetDefault("ca.force", false)

	// -- Proxy --
	v.SetDefault("proxy.addr", "127.0.0.1:8080")
	v.SetDefault("proxy.verbose", false)
}
