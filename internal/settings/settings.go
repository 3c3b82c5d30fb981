// Package settings persists the device settings document the surrounding
// process wires engine tunables from. The store and monitor never read it
// directly.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Settings is the on-disk device configuration document.
type Settings struct {
	DeviceName         string    `json:"device_name"`
	Currency           string    `json:"currency"`
	RewardRate         float64   `json:"reward_rate"`
	MinBandwidth       uint64    `json:"min_bandwidth"`
	MaxSharePercentage float64   `json:"max_share_percentage"`
	IntervalSeconds    uint64    `json:"interval_seconds"`
	AutoUpdate         bool      `json:"auto_update"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Defaults returns the settings written when no document exists yet.
func Defaults() Settings {
	return Settings{
		DeviceName:         "cryptonode",
		Currency:           "BTC",
		RewardRate:         0.0001,
		MinBandwidth:       1 << 20,
		MaxSharePercentage: 50,
		IntervalSeconds:    60,
		AutoUpdate:         true,
	}
}

// Validate rejects documents the engine could not run with.
func (s Settings) Validate() error {
	if s.DeviceName == "" {
		return fmt.Errorf("device name cannot be empty")
	}
	if s.RewardRate < 0 {
		return fmt.Errorf("reward rate cannot be negative")
	}
	if s.MinBandwidth == 0 {
		return fmt.Errorf("minimum bandwidth cannot be zero")
	}
	if s.MaxSharePercentage <= 0 || s.MaxSharePercentage > 100 {
		return fmt.Errorf("max share percentage must be in (0, 100]")
	}
	if s.IntervalSeconds == 0 {
		return fmt.Errorf("interval cannot be zero")
	}
	return nil
}

// Manager loads and saves the settings document at a fixed path.
type Manager struct {
	mu      sync.RWMutex
	path    string
	current Settings
}

// Open reads the document at path, creating it with defaults when absent.
func Open(path string) (*Manager, error) {
	m := &Manager{path: path}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var s Settings
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("settings %s: %w", path, err)
		}
		m.current = s
	case os.IsNotExist(err):
		m.current = Defaults()
		if err := m.save(m.current); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}

	return m, nil
}

// Get returns the current document.
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Update validates, persists and swaps in a new document. The file is written
// before the in-memory copy changes so a failed save leaves both consistent.
func (m *Manager) Update(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.UpdatedAt = time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.save(s); err != nil {
		return err
	}
	m.current = s
	return nil
}

// Reset restores the default document.
func (m *Manager) Reset() error {
	return m.Update(Defaults())
}

// Path returns the document location.
func (m *Manager) Path() string { return m.path }

func (m *Manager) save(s Settings) error {
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o600); err != nil {
		return fmt.Errorf("write settings %s: %w", m.path, err)
	}
	return nil
}
