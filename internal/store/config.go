package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

type Config struct {
	// Server is the performance server address (host:port or ws:// URL).
	Server string `json:"server,omitempty"`

	// PeerName is announced to other collaborators.
	PeerName string `json:"peerName,omitempty"`

	// Timing is the default command timing: immediate|boundary.
	Timing string `json:"timing,omitempty"`

	// Journal turns the local command journal on or off. Unset means on.
	Journal *bool `json:"journal,omitempty"`

	// TUI holds optional user preferences for the interactive grid.
	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// Profile is the color profile id ("default", "mono").
	Profile string `json:"profile,omitempty"`
	// Glyphs selects the glyph set ("unicode", "ascii").
	Glyphs string `json:"glyphs,omitempty"`
}

func (c *Config) JournalEnabled() bool {
	return c == nil || c.Journal == nil || *c.Journal
}

// Keys lists the settable config keys.
func Keys() []string {
	keys := []string{"server", "peerName", "timing", "journal", "tui.profile", "tui.glyphs"}
	sort.Strings(keys)
	return keys
}

func (c *Config) Get(key string) (string, error) {
	switch key {
	case "server":
		return c.Server, nil
	case "peerName":
		return c.PeerName, nil
	case "timing":
		return c.Timing, nil
	case "journal":
		return strconv.FormatBool(c.JournalEnabled()), nil
	case "tui.profile":
		if c.TUI == nil {
			return "", nil
		}
		return c.TUI.Profile, nil
	case "tui.glyphs":
		if c.TUI == nil {
			return "", nil
		}
		return c.TUI.Glyphs, nil
	default:
		return "", UnknownKeyError{Key: key}
	}
}

func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "server":
		c.Server = value
	case "peerName":
		c.PeerName = value
	case "timing":
		switch value {
		case "", "immediate", "boundary":
			c.Timing = value
		default:
			return fmt.Errorf("timing: %q (expected immediate|boundary)", value)
		}
	case "journal":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		c.Journal = &b
	case "tui.profile", "tui.glyphs":
		if c.TUI == nil {
			c.TUI = &TUIConfig{}
		}
		if key == "tui.profile" {
			c.TUI.Profile = value
		} else {
			c.TUI.Glyphs = value
		}
	default:
		return UnknownKeyError{Key: key}
	}
	return nil
}

type UnknownKeyError struct {
	Key string
}

func (e UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown config key: %q (known: %s)", e.Key, strings.Join(Keys(), ", "))
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.sovagrid).
	if v := strings.TrimSpace(os.Getenv("SOVAGRID_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sovagrid"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func SaveConfig(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	// Keep the previous file around; errors here never block the save.
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, "config.json.bak.*.tmp", path+".bak", prev, 0o644)
	}
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}
