package widget

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v2"
)

// TipsDisabledKey names the opt-out wherever it is persisted.
const TipsDisabledKey = "chatbot-tips-disabled"

type prefsFile struct {
	TipsDisabled bool `yaml:"tips_disabled,omitempty"`
}

// Preferences is the durable per-user opt-out store. It survives restarts.
type Preferences struct {
	path string

	mu    sync.Mutex
	prefs prefsFile
}

// DefaultPrefsPath returns the per-user preferences file location.
func DefaultPrefsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "portfolio-chat", "prefs.yaml"), nil
}

// LoadPreferences reads path. A missing file means every preference is at
// its default.
func LoadPreferences(path string) (*Preferences, error) {
	p := &Preferences{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	if err := yaml.Unmarshal(data, &p.prefs); err != nil {
		return nil, fmt.Errorf("parse preferences %s: %w", path, err)
	}
	return p, nil
}

func (p *Preferences) TipsDisabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prefs.TipsDisabled
}

func (p *Preferences) DisableTips() error { return p.setTipsDisabled(true) }

func (p *Preferences) EnableTips() error { return p.setTipsDisabled(false) }

func (p *Preferences) setTipsDisabled(v bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefs.TipsDisabled = v
	return p.saveLocked()
}

func (p *Preferences) saveLocked() error {
	data, err := yaml.Marshal(p.prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return os.Rename(tmp, p.path)
}
