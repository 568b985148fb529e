package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SetFileValue writes key=value into the YAML config file, creating it if needed.
// Numeric and boolean values are stored typed.
func (l *Loader) SetFileValue(key, value string) error {
	if !isKnownKey(key) {
		return fmt.Errorf("unknown configuration key %q", key)
	}
	file := l.paths.ConfigFile()
	if file == "" {
		return errors.New("no configuration directory available")
	}

	values := map[string]interface{}{}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("parse config file %s: %w", file, err)
		}
		if values == nil {
			values = map[string]interface{}{}
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("read config file %s: %w", file, err)
	}

	values[key] = typedValue(value)

	out, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(file, out, 0o600); err != nil {
		return fmt.Errorf("write config file %s: %w", file, err)
	}
	return nil
}

func typedValue(value string) interface{} {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}

// Entry is one displayed configuration value.
type Entry struct {
	Key   string
	Value string
}

// Entries lists the resolved values in key order with the credential masked.
func (c *Config) Entries() []Entry {
	return []Entry{
		{KeyStore, c.Store},
		{KeyDBPath, c.DBPath},
		{KeyModel, c.Model},
		{KeyContextLength, strconv.Itoa(c.ContextLength)},
		{KeyAPIKey, MaskSecret(c.APIKey)},
		{KeyBaseURL, c.BaseURL},
		{KeyListen, c.Listen},
		{KeyRequestTimeout, c.RequestTimeout.String()},
		{KeyRenderStyle, c.RenderStyle},
		{KeyWordWrap, strconv.Itoa(c.WordWrap)},
		{KeyLogLevel, c.LogLevel},
		{KeyLogFile, c.LogFile},
		{KeyDebugHTTP, strconv.FormatBool(c.DebugHTTP)},
	}
}

// MaskSecret keeps the first four characters of a credential.
func MaskSecret(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "***"
	default:
		return secret[:4] + "***"
	}
}
