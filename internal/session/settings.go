package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gemchat/internal/logger"
	"gemchat/pkg/chattypes"
)

// Defaults seed settings that have never been stored.
// Typically filled from configuration (flags, environment, .env files).
type Defaults struct {
	APIKey        string
	Model         string
	ContextLength int
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// currentSession reads the active session pointer without locking.
func (s *Store) currentSession() string {
	name, found, err := s.kv.Get(chattypes.KeyActiveSession)
	if err != nil {
		logger.Warn("Failed to read active session", "error", err)
		return chattypes.DefaultSessionName
	}
	if !found || name == "" {
		return chattypes.DefaultSessionName
	}
	return name
}

// CurrentSession returns the active session name, "default" when unset.
func (s *Store) CurrentSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSession()
}

// SetCurrentSession persists the active session name.
func (s *Store) SetCurrentSession(name string) error {
	name, err := ValidateSessionName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(chattypes.KeyActiveSession, name); err != nil {
		return fmt.Errorf("update active session: %w", err)
	}
	return nil
}

// ContextLength returns the stored context length. Missing or invalid values
// fall back to the configured default.
func (s *Store) ContextLength() int {
	raw, found, err := s.kv.Get(chattypes.KeyContextLength)
	if err != nil || !found {
		return s.defaults.ContextLength
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		logger.Warn("Ignoring invalid stored context length", "value", raw)
		return s.defaults.ContextLength
	}
	return n
}

// SetContextLength persists n, which must be positive.
func (s *Store) SetContextLength(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidContextLength, n)
	}
	if err := s.kv.Set(chattypes.KeyContextLength, strconv.Itoa(n)); err != nil {
		return fmt.Errorf("store context length: %w", err)
	}
	return nil
}

// Model returns the stored model identifier or the default.
func (s *Store) Model() string {
	id, found, err := s.kv.Get(chattypes.KeyModel)
	if err != nil || !found || id == "" {
		return s.defaults.Model
	}
	return id
}

// SetModel persists the model identifier. Identifiers outside the catalog are
// accepted but logged.
func (s *Store) SetModel(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidModel
	}
	if !chattypes.IsKnownModel(id) {
		logger.Warn("Model is not in the catalog", "model", id)
	}
	if err := s.kv.Set(chattypes.KeyModel, id); err != nil {
		return fmt.Errorf("store model: %w", err)
	}
	return nil
}

// APIKey returns the stored credential, falling back to the configured one.
func (s *Store) APIKey() string {
	key, found, err := s.kv.Get(chattypes.KeyAPIKey)
	if err != nil || !found || key == "" {
		return s.defaults.APIKey
	}
	return key
}

// SetAPIKey persists the credential. An empty key removes the stored value.
func (s *Store) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	var err error
	if key == "" {
		err = s.kv.Delete(chattypes.KeyAPIKey)
	} else {
		err = s.kv.Set(chattypes.KeyAPIKey, key)
	}
	if err != nil {
		return fmt.Errorf("store api key: %w", err)
	}
	return nil
}

// Settings returns the whole active selection.
func (s *Store) Settings() chattypes.Settings {
	return chattypes.Settings{
		CurrentSession: s.CurrentSession(),
		ContextLength:  s.ContextLength(),
		APIKey:         s.APIKey(),
		Model:          s.Model(),
	}
}
