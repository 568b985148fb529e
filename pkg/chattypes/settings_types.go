// Package chattypes defines the active selection and its storage keys.
package chattypes

import (
	"fmt"
	"strings"

	"gemchat/internal/data/embedded"

	"gopkg.in/yaml.v3"
)

// Storage keys. The values match the keys used by the browser client so that
// stores migrated from it keep working.
const (
	KeyAPIKey        = "gemini_chat_app_api_key"
	KeyModel         = "gemini_chat_app_model"
	KeyCollection    = "gemini-chat-history_v1"
	KeyActiveSession = "gemini-chat-history-default"
	KeyContextLength = "context-length"
)

// DefaultSessionName is the fallback session that always exists.
const DefaultSessionName = "default"

// DefaultContextLength is the number of trailing messages sent as context.
const DefaultContextLength = 6

// ContextLengthChoices are the context lengths offered in pickers.
var ContextLengthChoices = []int{6, 12, 32, 64}

// ModelCatalogEntry describes a selectable model.
type ModelCatalogEntry struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"display_name" yaml:"display_name"`
}

// ModelCatalogFile is the layout of an embedded catalog file.
type ModelCatalogFile struct {
	Provider string              `yaml:"provider"`
	Models   []ModelCatalogEntry `yaml:"models"`
}

// ModelCatalog lists the supported models. The first entry is the default.
var ModelCatalog = mustParseModelCatalog(embedded.GeminiCatalogData)

// ParseModelCatalog decodes a catalog file. IDs must be present and unique
// ignoring case.
func ParseModelCatalog(data []byte) ([]ModelCatalogEntry, error) {
	var file ModelCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse model catalog: %w", err)
	}
	if len(file.Models) == 0 {
		return nil, fmt.Errorf("model catalog %q has no models", file.Provider)
	}

	seen := make(map[string]string, len(file.Models))
	for _, m := range file.Models {
		if m.ID == "" {
			return nil, fmt.Errorf("model '%s' has empty ID field", m.DisplayName)
		}
		normalized := strings.ToUpper(m.ID)
		if existing, ok := seen[normalized]; ok {
			return nil, fmt.Errorf("duplicate model ID found: '%s' and '%s' (case insensitive)", existing, m.ID)
		}
		seen[normalized] = m.ID
	}
	return file.Models, nil
}

func mustParseModelCatalog(data []byte) []ModelCatalogEntry {
	models, err := ParseModelCatalog(data)
	if err != nil {
		panic(err)
	}
	return models
}

// DefaultModel returns the first catalog model.
func DefaultModel() string {
	return ModelCatalog[0].ID
}

// IsKnownModel reports whether id is in the catalog.
func IsKnownModel(id string) bool {
	for _, m := range ModelCatalog {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Settings is the active selection. Each field is persisted under its own key.
type Settings struct {
	CurrentSession string `json:"current_session"`
	ContextLength  int    `json:"context_length"`
	APIKey         string `json:"-"`
	Model          string `json:"model"`
}

// HasAPIKey reports whether a credential is set.
func (s Settings) HasAPIKey() bool {
	return s.APIKey != ""
}
