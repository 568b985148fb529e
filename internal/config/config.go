// Package config resolves gemchat settings from flags, environment, .env files
// and the YAML config file.
//
// Precedence, highest first: flags, GEMCHAT_* environment (plus GEMINI_API_KEY
// and GOOGLE_API_KEY for the credential), ./.env, <config dir>/.env,
// <config dir>/config.yaml, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gemchat/internal/logger"
	"gemchat/internal/render"
	"gemchat/internal/storage"
	"gemchat/pkg/chattypes"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable gemchat reads.
const EnvPrefix = "GEMCHAT"

// Configuration keys.
const (
	KeyStore          = "store"
	KeyDBPath         = "db_path"
	KeyModel          = "model"
	KeyContextLength  = "context_length"
	KeyAPIKey         = "api_key"
	KeyBaseURL        = "base_url"
	KeyListen         = "listen"
	KeyRequestTimeout = "request_timeout"
	KeyRenderStyle    = "render_style"
	KeyWordWrap       = "word_wrap"
	KeyLogLevel       = "log_level"
	KeyLogFile        = "log_file"
	KeyDebugHTTP      = "debug_http"
)

// Keys lists every configuration key in display order.
func Keys() []string {
	return []string{
		KeyStore, KeyDBPath, KeyModel, KeyContextLength, KeyAPIKey, KeyBaseURL,
		KeyListen, KeyRequestTimeout, KeyRenderStyle, KeyWordWrap,
		KeyLogLevel, KeyLogFile, KeyDebugHTTP,
	}
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the resolved configuration.
type Config struct {
	Store          string        `mapstructure:"store" yaml:"store"`
	DBPath         string        `mapstructure:"db_path" yaml:"db_path"`
	Model          string        `mapstructure:"model" yaml:"model"`
	ContextLength  int           `mapstructure:"context_length" yaml:"context_length"`
	APIKey         string        `mapstructure:"api_key" yaml:"-"`
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	Listen         string        `mapstructure:"listen" yaml:"listen"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	RenderStyle    string        `mapstructure:"render_style" yaml:"render_style"`
	WordWrap       int           `mapstructure:"word_wrap" yaml:"word_wrap"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level"`
	LogFile        string        `mapstructure:"log_file" yaml:"log_file"`
	DebugHTTP      bool          `mapstructure:"debug_http" yaml:"debug_http"`
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Store {
	case storage.BackendSQLite, storage.BackendMemory:
	default:
		return fmt.Errorf("%w: store must be %q or %q, got %q", ErrInvalidConfig, storage.BackendSQLite, storage.BackendMemory, c.Store)
	}
	if c.ContextLength <= 0 {
		return fmt.Errorf("%w: context_length must be positive, got %d", ErrInvalidConfig, c.ContextLength)
	}
	if c.WordWrap <= 0 {
		return fmt.Errorf("%w: word_wrap must be positive, got %d", ErrInvalidConfig, c.WordWrap)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%w: request_timeout cannot be negative", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model cannot be empty", ErrInvalidConfig)
	}
	return nil
}

// Paths locates the files the loader reads.
type Paths struct {
	ConfigDir string
	WorkDir   string
}

// DefaultPaths returns ~/.config/gemchat and the current directory.
func DefaultPaths() Paths {
	paths := Paths{}
	if home, err := os.UserHomeDir(); err == nil {
		paths.ConfigDir = filepath.Join(home, ".config", "gemchat")
	}
	if wd, err := os.Getwd(); err == nil {
		paths.WorkDir = wd
	}
	return paths
}

// ConfigFile is the YAML config file path.
func (p Paths) ConfigFile() string {
	if p.ConfigDir == "" {
		return ""
	}
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// Loader resolves a Config. Flags are bound on Viper() before Load.
type Loader struct {
	v     *viper.Viper
	paths Paths
}

// NewLoader creates a loader with defaults registered.
func NewLoader(paths Paths) *Loader {
	v := viper.New()
	v.SetDefault(KeyStore, storage.BackendSQLite)
	v.SetDefault(KeyDBPath, "")
	v.SetDefault(KeyModel, chattypes.DefaultModel())
	v.SetDefault(KeyContextLength, chattypes.DefaultContextLength)
	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyBaseURL, "")
	v.SetDefault(KeyListen, "127.0.0.1:8080")
	v.SetDefault(KeyRequestTimeout, time.Duration(0))
	v.SetDefault(KeyRenderStyle, render.StyleAuto)
	v.SetDefault(KeyWordWrap, render.DefaultWordWrap)
	v.SetDefault(KeyLogLevel, "")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyDebugHTTP, false)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	return &Loader{v: v, paths: paths}
}

// Viper exposes the underlying instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Paths returns the loader's file locations.
func (l *Loader) Paths() Paths {
	return l.paths
}

// Load reads the config file and .env files and resolves the Config.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.BindEnv(KeyAPIKey, EnvPrefix+"_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind api key environment: %w", err)
	}

	if file := l.paths.ConfigFile(); file != "" {
		if _, err := os.Stat(file); err == nil {
			l.v.SetConfigFile(file)
			if err := l.v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file %s: %w", file, err)
			}
			logger.Debug("Config file loaded", "path", file)
		}
	}

	for _, dir := range []string{l.paths.ConfigDir, l.paths.WorkDir} {
		if dir == "" {
			continue
		}
		if err := l.mergeDotEnv(filepath.Join(dir, ".env")); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeDotEnv merges a .env file over the config layer. A missing file is not an error.
func (l *Loader) mergeDotEnv(envPath string) error {
	data, err := os.ReadFile(envPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read .env file %s: %w", envPath, err)
	}

	envMap, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return fmt.Errorf("failed to parse .env file %s: %w", envPath, err)
	}

	values := dotEnvValues(envMap)
	if len(values) == 0 {
		return nil
	}
	if err := l.v.MergeConfigMap(values); err != nil {
		return fmt.Errorf("merge .env file %s: %w", envPath, err)
	}
	logger.Debug(".env file loaded", "path", envPath, "keys", len(values))
	return nil
}

// dotEnvValues maps GEMCHAT_* variables to config keys. GEMINI_API_KEY and
// GOOGLE_API_KEY fill api_key unless GEMCHAT_API_KEY is present.
func dotEnvValues(envMap map[string]string) map[string]interface{} {
	values := make(map[string]interface{})
	for _, fallback := range []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"} {
		if v, ok := envMap[fallback]; ok && v != "" {
			values[KeyAPIKey] = v
		}
	}

	prefix := EnvPrefix + "_"
	for name, value := range envMap {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, prefix))
		if isKnownKey(key) {
			values[key] = value
		}
	}
	return values
}

func isKnownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}
