// Package credentials resolves the bearer token used for the completion
// endpoint and remembers the selected model.
package credentials

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"forge/internal/db"
)

const (
	APIKeySetting  = "groq_api_key"
	ModelIDSetting = "current_model_id"
)

// Credential is the active token. Shared marks the environment-supplied
// default key, which only changes how rate limit errors are worded.
type Credential struct {
	Key    string
	Shared bool
}

type Provider interface {
	Active() (Credential, bool)
}

// Static is a fixed Provider.
type Static Credential

func (s Static) Active() (Credential, bool) {
	return Credential(s), s.Key != ""
}

// Store keeps the user key in the settings table and falls back to the
// default key when none is stored.
type Store struct {
	conn       *sql.DB
	defaultKey string

	mu     sync.RWMutex
	key    string
	shared bool
}

func NewStore(conn *sql.DB, defaultKey string) (*Store, error) {
	s := &Store{conn: conn, defaultKey: strings.TrimSpace(defaultKey)}
	key, ok, err := db.GetSetting(conn, APIKeySetting)
	if err != nil {
		return nil, fmt.Errorf("load api key: %w", err)
	}
	if ok && strings.TrimSpace(key) != "" {
		s.key = strings.TrimSpace(key)
	} else if s.defaultKey != "" {
		s.key = s.defaultKey
		s.shared = true
	}
	return s, nil
}

func (s *Store) Active() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Credential{Key: s.key, Shared: s.shared}, s.key != ""
}

// SetKey persists a user key. An empty key removes the stored one and
// reverts to the default key, if any.
func (s *Store) SetKey(key string) error {
	key = strings.TrimSpace(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if key == "" {
		if err := db.DeleteSetting(s.conn, APIKeySetting); err != nil {
			return fmt.Errorf("clear api key: %w", err)
		}
		s.key = s.defaultKey
		s.shared = s.defaultKey != ""
		return nil
	}
	if err := db.SetSetting(s.conn, APIKeySetting, key); err != nil {
		return fmt.Errorf("save api key: %w", err)
	}
	s.key = key
	s.shared = false
	return nil
}

// ModelID returns the persisted model id, or "" when none was saved.
func (s *Store) ModelID() (string, error) {
	id, _, err := db.GetSetting(s.conn, ModelIDSetting)
	if err != nil {
		return "", fmt.Errorf("load model id: %w", err)
	}
	return id, nil
}

func (s *Store) SetModelID(id string) error {
	if err := db.SetSetting(s.conn, ModelIDSetting, id); err != nil {
		return fmt.Errorf("save model id: %w", err)
	}
	return nil
}
