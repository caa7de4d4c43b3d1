// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Portal  PortalConfig  `mapstructure:"portal" yaml:"portal"`
	Canvas  CanvasConfig  `mapstructure:"canvas" yaml:"canvas"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
}

// LoggerConfig holds all the configuration for the logger.
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

// ServerConfig tunes the HTTP API server.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// BrowserConfig holds settings for the automated browser session.
//
// The profile directory is exclusive to one process: pointing two processes at
// the same profile_dir is a precondition violation and is not supported.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ProfileDir        string        `mapstructure:"profile_dir" yaml:"profile_dir"`
	ScreenshotsDir    string        `mapstructure:"screenshots_dir" yaml:"screenshots_dir"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	StepTimeout       time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	LoginTimeout      time.Duration `mapstructure:"login_timeout" yaml:"login_timeout"`
	WatcherInterval   time.Duration `mapstructure:"watcher_interval" yaml:"watcher_interval"`
	// CloseAfterFlow tears the browser session down after every flow instead
	// of keeping it open for reuse. Reuse is the default since it avoids a
	// fresh SSO round trip on every call.
	CloseAfterFlow bool `mapstructure:"close_after_flow" yaml:"close_after_flow"`
}

// PortalConfig describes the registration portal and the form labels the
// flows fill in. Labels are opaque strings; no validation beyond non-empty.
type PortalConfig struct {
	BaseURL          string `mapstructure:"base_url" yaml:"base_url"`
	LoginTitle       string `mapstructure:"login_title" yaml:"login_title"`
	LandingMarker    string `mapstructure:"landing_marker" yaml:"landing_marker"`
	PasscodeSelector string `mapstructure:"passcode_selector" yaml:"passcode_selector"`
	HomeURLFragment  string `mapstructure:"home_url_fragment" yaml:"home_url_fragment"`
	AcademicYear     string `mapstructure:"academic_year" yaml:"academic_year"`
	AcademicSemester string `mapstructure:"academic_semester" yaml:"academic_semester"`
	AcademicLevel    string `mapstructure:"academic_level" yaml:"academic_level"`
	Username         string `mapstructure:"username" yaml:"username"`
	Password         string `mapstructure:"password" yaml:"-"`
}

// CanvasConfig holds the LMS API connection details.
type CanvasConfig struct {
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	Token             string        `mapstructure:"token" yaml:"-"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// LLMConfig configures the completion provider used by the chat agent.
type LLMConfig struct {
	Endpoint      string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey        string        `mapstructure:"api_key" yaml:"-"`
	Model         string        `mapstructure:"model" yaml:"model"`
	APITimeout    time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature   float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxToolRounds int           `mapstructure:"max_tool_rounds" yaml:"max_tool_rounds"`
}

// StoreConfig locates the student profile database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "campusnav")
	v.SetDefault("logger.log_file", "campusnav.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "15s")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.profile_dir", "chrome_profile")
	v.SetDefault("browser.screenshots_dir", "navigation_screenshots")
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.step_timeout", "10s")
	v.SetDefault("browser.login_timeout", "60s")
	v.SetDefault("browser.watcher_interval", "2s")
	v.SetDefault("browser.close_after_flow", false)

	// -- Portal --
	v.SetDefault("portal.base_url", "https://www.stevens.edu/it/services/workday")
	v.SetDefault("portal.login_title", "Stevens Institute of Technology - Sign In")
	v.SetDefault("portal.landing_marker", "window.workday")
	v.SetDefault("portal.passcode_selector", "input[name='credentials.passcode']")
	v.SetDefault("portal.home_url_fragment", "home.htmld")
	v.SetDefault("portal.academic_year", "2025-2026 Semester Academic Calendar")
	v.SetDefault("portal.academic_semester", "2025 Fall Semester(09/02/2025-12/22/2025)")
	v.SetDefault("portal.academic_level", "Graduate")

	// -- Canvas --
	v.SetDefault("canvas.base_url", "https://sit.instructure.com")
	v.SetDefault("canvas.timeout", "30s")
	v.SetDefault("canvas.requests_per_second", 5.0)

	// -- LLM --
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_timeout", "60s")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.max_tool_rounds", 6)

	// -- Store --
	v.SetDefault("store.path", "campusnav.db")
}

// BindEnv wires sensitive values to their environment variables. These stay
// out of config files on purpose.
func BindEnv(v *viper.Viper) {
	v.BindEnv("portal.username", "WORKDAY_USERNAME")
	v.BindEnv("portal.password", "WORKDAY_PASSWORD")
	v.BindEnv("canvas.token", "CANVAS_API_KEY")
	v.BindEnv("llm.api_key", "GEMINI_API_KEY")
}

// New builds a standalone configuration from defaults, environment, and an
// optional config file.
func New(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("CAMPUSNAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and env vars.
	}

	return NewFromViper(v)
}

// NewFromViper unmarshals and validates a configuration from a viper object.
func NewFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration populated with default values only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Portal.BaseURL == "" {
		return fmt.Errorf("portal.base_url is a required configuration field")
	}
	if c.Browser.ProfileDir == "" {
		return fmt.Errorf("browser.profile_dir is a required configuration field")
	}
	if c.Browser.ScreenshotsDir == "" {
		return fmt.Errorf("browser.screenshots_dir is a required configuration field")
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be a positive duration")
	}
	if c.Browser.StepTimeout <= 0 {
		return fmt.Errorf("browser.step_timeout must be a positive duration")
	}
	if c.Browser.WatcherInterval <= 0 {
		return fmt.Errorf("browser.watcher_interval must be a positive duration")
	}
	if c.LLM.MaxToolRounds <= 0 {
		return fmt.Errorf("llm.max_tool_rounds must be a positive integer")
	}
	return nil
}
