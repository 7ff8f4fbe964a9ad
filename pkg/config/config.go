package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/core-tools/hsu-siat/pkg/clientfactory"
	"github.com/core-tools/hsu-siat/pkg/endpoints"
	"github.com/core-tools/hsu-siat/pkg/errors"
	"github.com/core-tools/hsu-siat/pkg/logging"
	"github.com/core-tools/hsu-siat/pkg/serviceproxy"
	"github.com/core-tools/hsu-siat/pkg/soap"
	"github.com/core-tools/hsu-siat/pkg/wsdlcache"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level configuration file structure
type Config struct {
	SIAT     SIATConfig   `yaml:"siat" toml:"siat"`
	Client   ClientConfig `yaml:"client" toml:"client"`
	LogLevel string       `yaml:"log_level,omitempty" toml:"log_level"`
}

// SIATConfig selects the endpoints and credentials
type SIATConfig struct {
	Environment string `yaml:"environment" toml:"environment"` // 1|2|test|production
	Modality    string `yaml:"modality,omitempty" toml:"modality"`
	Token       string `yaml:"token,omitempty" toml:"token"`
	TokenEnv    string `yaml:"token_env,omitempty" toml:"token_env"` // environment variable holding the token
}

// ClientConfig tunes SOAP client construction
type ClientConfig struct {
	ConstructionTimeout time.Duration `yaml:"construction_timeout,omitempty" toml:"construction_timeout"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout,omitempty" toml:"connect_timeout"`
	OperationTimeout    time.Duration `yaml:"operation_timeout,omitempty" toml:"operation_timeout"`
	CacheDir            string        `yaml:"cache_dir,omitempty" toml:"cache_dir"`
	CacheTTL            time.Duration `yaml:"cache_ttl,omitempty" toml:"cache_ttl"`
}

// Format is the configuration file syntax
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// DetectFormat picks the syntax from the file extension, YAML by default
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

// LoadConfigFromFile loads configuration from a YAML or TOML file and applies defaults
func LoadConfigFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	config, parseErr := ParseConfig(data, DetectFormat(filename))
	if parseErr != nil {
		return nil, parseErr.WithContext("filename", filename)
	}
	return config, nil
}

// ParseConfig decodes configuration content and applies defaults
func ParseConfig(data []byte, format Format) (*Config, *errors.DomainError) {
	var config Config

	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, errors.NewConfigError("failed to parse TOML configuration", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, errors.NewConfigError("failed to parse YAML configuration", err)
		}
	default:
		return nil, errors.NewConfigError("unsupported configuration format", nil).WithContext("format", format)
	}

	SetConfigDefaults(&config)

	return &config, nil
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	config := &Config{
		SIAT: SIATConfig{Environment: "test"},
	}
	SetConfigDefaults(config)
	return config
}

// SetConfigDefaults fills unset timeouts and the log level
func SetConfigDefaults(config *Config) {
	if config.Client.ConstructionTimeout == 0 {
		config.Client.ConstructionTimeout = clientfactory.DefaultConstructionTimeout
	}
	if config.Client.ConnectTimeout == 0 {
		config.Client.ConnectTimeout = soap.DefaultConnectTimeout
	}
	if config.Client.OperationTimeout == 0 {
		config.Client.OperationTimeout = soap.DefaultOperationTimeout
	}
	if config.Client.CacheTTL == 0 {
		config.Client.CacheTTL = wsdlcache.DefaultTTL
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}

// ValidateConfig checks the whole configuration structure
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	if _, err := endpoints.ParseEnvironment(config.SIAT.Environment); err != nil {
		return err
	}
	if _, err := endpoints.ParseModality(config.SIAT.Modality); err != nil {
		return err
	}

	durations := map[string]time.Duration{
		"construction_timeout": config.Client.ConstructionTimeout,
		"connect_timeout":      config.Client.ConnectTimeout,
		"operation_timeout":    config.Client.OperationTimeout,
		"cache_ttl":            config.Client.CacheTTL,
	}
	for name, value := range durations {
		if value < 0 {
			return errors.NewConfigError("duration must not be negative", nil).
				WithContext("field", name).
				WithContext("value", value.String())
		}
	}

	return nil
}

// ResolveToken returns the explicit token, or the value of the token_env variable
func (c *Config) ResolveToken() string {
	if c.SIAT.Token != "" {
		return c.SIAT.Token
	}
	if c.SIAT.TokenEnv != "" {
		return os.Getenv(c.SIAT.TokenEnv)
	}
	return ""
}

// FactoryOptions translates the client section into clientfactory options
func (c *Config) FactoryOptions(logger logging.Logger) clientfactory.Options {
	return clientfactory.Options{
		ConstructionTimeout: c.Client.ConstructionTimeout,
		ConnectTimeout:      c.Client.ConnectTimeout,
		OperationTimeout:    c.Client.OperationTimeout,
		CacheDir:            c.Client.CacheDir,
		CacheTTL:            c.Client.CacheTTL,
		Logger:              logger,
	}
}

// ProxyOptions validates the configuration and builds serviceproxy options from it
func (c *Config) ProxyOptions(logger logging.Logger) (serviceproxy.Options, error) {
	if err := ValidateConfig(c); err != nil {
		return serviceproxy.Options{}, err
	}

	environment, _ := endpoints.ParseEnvironment(c.SIAT.Environment)
	modality, _ := endpoints.ParseModality(c.SIAT.Modality)

	return serviceproxy.Options{
		Environment: environment,
		Modality:    modality,
		Token:       c.ResolveToken(),
		Factory:     clientfactory.NewFactory(c.FactoryOptions(logger)),
		Logger:      logger,
	}, nil
}
