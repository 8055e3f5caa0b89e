// Package config loads the daemon's two configuration layers: the
// process-level server flags (port, log level, metrics path) via
// pflag+viper, and the domain configuration documents (system TOML, which
// also carries the sink's [monitor_es] section, and the cluster, SQL server,
// index-watch, urgent and receiver TOML files) named by the ten required
// *_PATH environment variables (SPEC_FULL.md §6). The two HTML template
// variables are kept as paths, and the MON_ELASTIC_INFO_PATH file is not read.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/crlsmrls/esmonitor/internal/model"
)

// Config holds the process-level server configuration.
type Config struct {
	Port        int    `mapstructure:"port"`
	LogLevel    string `mapstructure:"log-level"`
	MetricsPath string `mapstructure:"metrics-path"`
}

// New builds Config from flags, environment (ESMONITOR_-prefixed) and an
// optional --config-file. A flag set on the command line wins over the
// environment, which wins over the file, which wins over the defaults.
func New() (*Config, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("log-level", "info")
	v.SetDefault("metrics-path", "/metrics")

	pflag.Int("port", 8080, "Listening port")
	pflag.String("log-level", "info", "Logging level (debug, info, warn, error)")
	pflag.String("metrics-path", "/metrics", "Metrics endpoint path")
	pflag.String("config-file", "", "Path to a JSON/TOML config file overriding the server defaults")
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetEnvPrefix("ESMONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile := v.GetString("config-file"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a Config struct with default values.
func DefaultConfig() *Config {
	return &Config{
		Port:        8080,
		LogLevel:    "info",
		MetricsPath: "/metrics",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	isValidLogLevel := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			isValidLogLevel = true
			break
		}
	}
	if !isValidLogLevel {
		return fmt.Errorf("invalid log-level: %s, must be one of %v", c.LogLevel, validLogLevels)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d, must be between 1 and 65535", c.Port)
	}

	return nil
}

// Domain is every domain configuration document the daemon needs,
// resolved from the ten required *_PATH environment variables (§6).
type Domain struct {
	System                 model.SystemConfig
	Clusters               model.ClusterConfigFile
	IndexWatch             model.IndexWatchConfig
	Urgent                 model.UrgentConfigFile
	Receivers              model.ReceiversConfig
	ReceiversDev           model.ReceiversConfig
	HTMLTemplatePath       string
	ReportHTMLTemplatePath string
}

// pathEnvVars names the ten required environment variables, each pointing
// at a config file on disk. Missing any one aborts startup (§6).
var pathEnvVars = []string{
	"ELASTIC_INFO_PATH",
	"EMAIL_RECEIVER_PATH",
	"EMAIL_RECEIVER_DEV_PATH",
	"SQL_SERVER_INFO_PATH",
	"SYSTEM_CONFIG_PATH",
	"HTML_TEMPLATE_PATH",
	"REPORT_HTML_TEMPLATE_PATH",
	"ELASTIC_INDEX_INFO_PATH",
	"URGENT_CONFIG_PATH",
	"MON_ELASTIC_INFO_PATH",
}

// EnvLookup abstracts os.LookupEnv for testability.
type EnvLookup func(key string) (string, bool)

// LoadDomain resolves every *_PATH environment variable via lookup and
// parses the TOML documents they name. All ten must be set; the two HTML
// template paths are stored unread, and the MON_ELASTIC_INFO_PATH file is
// not read (the sink descriptor comes from the system TOML).
func LoadDomain(lookup EnvLookup) (Domain, error) {
	paths := make(map[string]string, len(pathEnvVars))
	for _, key := range pathEnvVars {
		val, ok := lookup(key)
		if !ok || val == "" {
			return Domain{}, fmt.Errorf("config: required environment variable %s is not set", key)
		}
		paths[key] = val
	}

	var dom Domain
	dom.HTMLTemplatePath = paths["HTML_TEMPLATE_PATH"]
	dom.ReportHTMLTemplatePath = paths["REPORT_HTML_TEMPLATE_PATH"]

	if err := readTOML(paths["SYSTEM_CONFIG_PATH"], &dom.System); err != nil {
		return Domain{}, err
	}
	if err := readTOML(paths["ELASTIC_INFO_PATH"], &dom.Clusters); err != nil {
		return Domain{}, err
	}
	if err := readTOML(paths["ELASTIC_INDEX_INFO_PATH"], &dom.IndexWatch); err != nil {
		return Domain{}, err
	}
	if err := readTOML(paths["URGENT_CONFIG_PATH"], &dom.Urgent); err != nil {
		return Domain{}, err
	}
	if err := readTOML(paths["EMAIL_RECEIVER_PATH"], &dom.Receivers); err != nil {
		return Domain{}, err
	}
	if err := readTOML(paths["EMAIL_RECEIVER_DEV_PATH"], &dom.ReceiversDev); err != nil {
		return Domain{}, err
	}

	// SQL_SERVER_INFO_PATH and the system TOML's [smtp] section describe the
	// same stored-procedure connection; the dedicated file wins when present.
	var sqlInfo model.SMTPConfig
	if err := readTOML(paths["SQL_SERVER_INFO_PATH"], &sqlInfo); err != nil {
		return Domain{}, err
	}
	if sqlInfo.DataSourceName != "" {
		dom.System.SMTP = sqlInfo
	}

	return dom, nil
}

// readTOML loads path as a TOML document into out via a dedicated viper
// instance, matching the pattern the daemon's other config loading uses.
func readTOML(path string, out interface{}) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}
