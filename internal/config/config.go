// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/domq/api/schemas"
)

// Engine names accepted by browser.engine.
const (
	EngineChromedp   = "chromedp"
	EnginePlaywright = "playwright"
)

// Interface is the read-only view of the configuration that commands use.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Query() QueryConfig
}

var _ Interface = (*Config)(nil)

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	QueryCfg   QueryConfig   `mapstructure:"query" yaml:"query"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Query() QueryConfig     { return c.QueryCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the terminal color for each log level.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig selects and tunes the headless engine.
type BrowserConfig struct {
	Engine          string          `mapstructure:"engine" yaml:"engine"`
	Headless        bool            `mapstructure:"headless" yaml:"headless"`
	DisableCache    bool            `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors bool            `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string        `mapstructure:"args" yaml:"args"`
	ExecPath        string          `mapstructure:"exec_path" yaml:"exec_path"`
	Stealth         bool            `mapstructure:"stealth" yaml:"stealth"`
	Persona         schemas.Persona `mapstructure:"persona" yaml:"persona"`
	LaunchTimeout   time.Duration   `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// QueryConfig bounds individual CLI queries.
type QueryConfig struct {
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	Concurrency       int           `mapstructure:"concurrency" yaml:"concurrency"`
}

// NewDefaultConfig builds a Config populated only from SetDefaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "domq")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.engine", EngineChromedp)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_cache", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.stealth", true)
	v.SetDefault("browser.launch_timeout", "30s")
	v.SetDefault("browser.persona.user_agent", schemas.DefaultPersona.UserAgent)
	v.SetDefault("browser.persona.platform", schemas.DefaultPersona.Platform)
	v.SetDefault("browser.persona.languages", schemas.DefaultPersona.Languages)
	v.SetDefault("browser.persona.width", schemas.DefaultPersona.Width)
	v.SetDefault("browser.persona.height", schemas.DefaultPersona.Height)
	v.SetDefault("browser.persona.timezone", schemas.DefaultPersona.Timezone)
	v.SetDefault("browser.persona.locale", schemas.DefaultPersona.Locale)

	// -- Query --
	v.SetDefault("query.timeout", "30s")
	v.SetDefault("query.navigation_timeout", "60s")
	v.SetDefault("query.concurrency", 4)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind the exec path explicitly so CHROME_PATH style setups keep working.
	_ = v.BindEnv("browser.exec_path", "DOMQ_BROWSER_EXEC_PATH", "CHROME_PATH")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.BrowserCfg.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.QueryCfg.Validate(); err != nil {
		return fmt.Errorf("query configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the browser section.
func (b *BrowserConfig) Validate() error {
	switch b.Engine {
	case EngineChromedp, EnginePlaywright:
	default:
		return fmt.Errorf("browser.engine must be %q or %q, got %q", EngineChromedp, EnginePlaywright, b.Engine)
	}
	if b.LaunchTimeout < 0 {
		return fmt.Errorf("browser.launch_timeout must not be negative")
	}
	if b.Persona.Width < 0 || b.Persona.Height < 0 {
		return fmt.Errorf("browser.persona viewport must not be negative")
	}
	return nil
}

// Validate checks the query section.
func (q *QueryConfig) Validate() error {
	if q.Timeout <= 0 {
		return fmt.Errorf("query.timeout must be a positive duration")
	}
	if q.NavigationTimeout <= 0 {
		return fmt.Errorf("query.navigation_timeout must be a positive duration")
	}
	if q.Concurrency <= 0 {
		return fmt.Errorf("query.concurrency must be a positive integer")
	}
	return nil
}
