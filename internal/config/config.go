// Package config manages application configuration from various sources.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Data defines storage configuration.
type Data struct {
	Directory string `json:"directory,omitempty"`
}

// AnalysisConfig configures the external suggestion-analysis service.
type AnalysisConfig struct {
	Provider       string `json:"provider,omitempty"`
	Model          string `json:"model,omitempty"`
	APIKey         string `json:"apiKey,omitempty"`
	BaseURL        string `json:"baseURL,omitempty"`
	MaxRetries     int    `json:"maxRetries,omitempty"`
	ProgramContext string `json:"programContext,omitempty"`
}

// EditorConfig configures the editor session behavior.
type EditorConfig struct {
	// AnalyzeDelayMs is the quiet period after the last edit before an
	// automatic re-analysis fires.
	AnalyzeDelayMs int `json:"analyzeDelayMs,omitempty"`
	// AutoSaveDelayMs is the quiet period before an auto-save fires.
	AutoSaveDelayMs int `json:"autoSaveDelayMs,omitempty"`
	// ParagraphCache toggles incremental paragraph-level analysis.
	ParagraphCache bool `json:"paragraphCache"`
	// ParagraphCacheTTLSec is how long a cached paragraph result stays valid.
	ParagraphCacheTTLSec int `json:"paragraphCacheTTLSec,omitempty"`
	// ParagraphCacheSize bounds the number of cached paragraphs.
	ParagraphCacheSize int `json:"paragraphCacheSize,omitempty"`
}

// Config is the main configuration structure for the application.
type Config struct {
	Data       Data           `json:"data"`
	WorkingDir string         `json:"wd,omitempty"`
	Debug      bool           `json:"debug,omitempty"`
	Analysis   AnalysisConfig `json:"analysis"`
	Editor     EditorConfig   `json:"editor"`
}

const (
	defaultDataDirectory = ".revisely"
	defaultLogLevel      = "info"
	appName              = "revisely"

	defaultAnalyzeDelayMs       = 3000
	defaultAutoSaveDelayMs      = 2000
	defaultParagraphCacheTTLSec = 300
	defaultParagraphCacheSize   = 100
	defaultMaxRetries           = 3
)

// Global configuration instance
var cfg *Config

// Load initializes the configuration from environment variables and config
// files. If debug is true, debug mode is enabled and log level is set to
// debug.
func Load(workingDir string, debug bool) (*Config, error) {
	if cfg != nil {
		return cfg, nil
	}

	cfg = &Config{
		WorkingDir: workingDir,
	}

	configureViper()
	setDefaults(debug)

	// Read global config
	if err := readConfig(viper.ReadInConfig()); err != nil {
		return cfg, err
	}

	// Load and merge local config
	mergeLocalConfig(workingDir)

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	defaultLevel := slog.LevelInfo
	if cfg.Debug {
		defaultLevel = slog.LevelDebug
	}
	slog.SetLogLoggerLevel(defaultLevel)

	if err := Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// configureViper sets up viper's configuration paths and environment variables.
func configureViper() {
	viper.SetConfigName(fmt.Sprintf(".%s", appName))
	viper.SetConfigType("json")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
	viper.AddConfigPath(fmt.Sprintf("$HOME/.config/%s", appName))
	viper.SetEnvPrefix(strings.ToUpper(appName))
	viper.AutomaticEnv()
}

// setDefaults configures default values for configuration options.
func setDefaults(debug bool) {
	viper.SetDefault("data.directory", defaultDataDirectory)
	viper.SetDefault("analysis.provider", "openai")
	viper.SetDefault("analysis.model", "gpt-4o-mini")
	viper.SetDefault("analysis.maxRetries", defaultMaxRetries)
	viper.SetDefault("editor.analyzeDelayMs", defaultAnalyzeDelayMs)
	viper.SetDefault("editor.autoSaveDelayMs", defaultAutoSaveDelayMs)
	viper.SetDefault("editor.paragraphCache", true)
	viper.SetDefault("editor.paragraphCacheTTLSec", defaultParagraphCacheTTLSec)
	viper.SetDefault("editor.paragraphCacheSize", defaultParagraphCacheSize)

	if debug {
		viper.SetDefault("debug", true)
		viper.Set("log.level", "debug")
	} else {
		viper.SetDefault("debug", false)
		viper.SetDefault("log.level", defaultLogLevel)
	}
}

// readConfig handles the result of reading a configuration file.
func readConfig(err error) error {
	if err == nil {
		return nil
	}

	// It's okay if the config file doesn't exist
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return nil
	}

	return fmt.Errorf("failed to read config: %w", err)
}

// mergeLocalConfig loads and merges configuration from the local directory.
func mergeLocalConfig(workingDir string) {
	local := viper.New()
	local.SetConfigName(fmt.Sprintf(".%s", appName))
	local.SetConfigType("json")
	local.AddConfigPath(workingDir)

	if err := local.ReadInConfig(); err == nil {
		viper.MergeConfigMap(local.AllSettings())
	}
}

// Validate checks if the configuration is valid and applies defaults where
// needed.
func Validate() error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if cfg.Editor.ParagraphCacheSize <= 0 {
		cfg.Editor.ParagraphCacheSize = defaultParagraphCacheSize
	}
	if cfg.Editor.ParagraphCacheTTLSec <= 0 {
		cfg.Editor.ParagraphCacheTTLSec = defaultParagraphCacheTTLSec
	}
	if cfg.Analysis.MaxRetries <= 0 {
		cfg.Analysis.MaxRetries = defaultMaxRetries
	}
	return nil
}

// Get returns the current configuration.
func Get() *Config {
	return cfg
}

// WorkingDirectory returns the current working directory from the configuration.
func WorkingDirectory() string {
	if cfg == nil {
		panic("config not loaded")
	}
	return cfg.WorkingDir
}

// AnalyzeDelay returns the debounce quiet period for automatic re-analysis.
func (c *Config) AnalyzeDelay() time.Duration {
	return time.Duration(c.Editor.AnalyzeDelayMs) * time.Millisecond
}

// AutoSaveDelay returns the debounce quiet period for auto-save.
func (c *Config) AutoSaveDelay() time.Duration {
	return time.Duration(c.Editor.AutoSaveDelayMs) * time.Millisecond
}

// ParagraphCacheTTL returns how long cached paragraph results stay valid.
func (c *Config) ParagraphCacheTTL() time.Duration {
	return time.Duration(c.Editor.ParagraphCacheTTLSec) * time.Second
}
