// Package session owns the bridge's single credential: the in-memory
// session cookie, its on-disk persistence, and the per-request resolution
// and refresh rules.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"ncmbridge/logger"
)

// Store holds the one process-wide session cookie and mirrors it to a
// single JSON file. Empty string means unauthenticated. The store is the
// only writer of that file.
type Store struct {
	mu    sync.RWMutex
	value string
	file  string
}

// NewStore creates a store backed by the given file path. The path is
// resolved once at startup and immutable afterwards.
func NewStore(file string) *Store {
	return &Store{file: file}
}

// File returns the backing file path.
func (s *Store) File() string {
	return s.file
}

// Get returns the current in-memory cookie, default empty.
func (s *Store) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the cookie with the normalized raw value and persists it.
// The transition is logged only when presence or length changed, and only
// as presence and length, never content.
func (s *Store) Set(raw interface{}, reason string) {
	normalized := normalizeCookieValue(raw)

	s.mu.Lock()
	prev := s.value
	s.value = normalized
	s.persistLocked()
	s.mu.Unlock()

	// Compared by presence and length rather than content so the log can
	// never leak credential material.
	if len(normalized) != len(prev) {
		if reason == "" {
			reason = "n/a"
		}
		logger.Info("session cookie updated",
			logger.String("reason", reason),
			logger.Int("prev_len", len(prev)),
			logger.Int("len", len(normalized)))
	}
}

// Persist writes the current cookie to disk, or removes the file when the
// cookie is empty. I/O failures are logged and swallowed; persistence never
// blocks the request path.
func (s *Store) Persist() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.persistLocked()
}

func (s *Store) persistLocked() {
	if s.value == "" {
		if err := os.Remove(s.file); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove cookie file",
				logger.String("file", s.file),
				logger.ErrorField(err))
		}
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.file), 0700); err != nil {
		logger.Warn("failed to create cookie dir", logger.ErrorField(err))
		return
	}
	payload, err := json.MarshalIndent(persistedCookie{
		Cookie:    s.value,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		logger.Warn("failed to encode cookie file", logger.ErrorField(err))
		return
	}
	// Owner read/write only; the cookie is a live credential.
	if err := os.WriteFile(s.file, payload, 0600); err != nil {
		logger.Warn("failed to persist cookie",
			logger.String("file", s.file),
			logger.ErrorField(err))
	}
}

// LoadFromDisk adopts a previously persisted cookie, if any. Called once at
// startup. A missing file is the normal unauthenticated state; read and
// parse failures are logged and swallowed.
func (s *Store) LoadFromDisk() {
	raw, err := os.ReadFile(s.file)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read cookie file",
				logger.String("file", s.file),
				logger.ErrorField(err))
		}
		return
	}
	if strings.TrimSpace(string(raw)) == "" {
		return
	}

	var parsed struct {
		Cookie interface{} `json:"cookie"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		logger.Warn("failed to parse cookie file",
			logger.String("file", s.file),
			logger.ErrorField(err))
		return
	}
	cookie := normalizeCookieValue(parsed.Cookie)
	if cookie == "" {
		return
	}

	s.mu.Lock()
	s.value = cookie
	s.mu.Unlock()
	logger.Info("loaded session cookie from disk", logger.Int("len", len(cookie)))
}

// HasPersisted reports whether a non-empty cookie file exists on disk.
func (s *Store) HasPersisted() bool {
	stat, err := os.Stat(s.file)
	if err != nil {
		return false
	}
	return stat.Mode().IsRegular() && stat.Size() > 0
}

type persistedCookie struct {
	Cookie    string `json:"cookie"`
	UpdatedAt string `json:"updated_at"`
}

// normalizeCookieValue flattens the forms a cookie arrives in: a string is
// trimmed, a string array is trimmed per-entry, filtered and joined with
// ";", anything else is empty.
func normalizeCookieValue(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case []string:
		return joinCookieParts(v)
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return joinCookieParts(parts)
	}
	return ""
}

func joinCookieParts(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, ";")
}

// ResolveCookieFile picks the backing file path: an explicit override wins,
// otherwise a platform-appropriate per-user state directory.
func ResolveCookieFile(override string) string {
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		if abs, err := filepath.Abs(trimmed); err == nil {
			return abs
		}
		return trimmed
	}

	home, _ := os.UserHomeDir()
	if runtime.GOOS == "windows" {
		base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
		if base == "" {
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, "NcmBridge", "netease", "session-cookie.json")
	}

	stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME"))
	if stateHome == "" {
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "ncm-bridge", "netease", "session-cookie.json")
}
