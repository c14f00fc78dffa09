// Package config loads engine definitions and tester-wide settings from a
// TOML file, per spec.md §4.1's EngineConfigManager (name uniqueness,
// per-engine option overrides, protocol selection).
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/mangar2/qaplatester/pkg/protocol"
)

// File is the root of a tester config file.
//
//	[[engine]]
//	name = "candidate"
//	path = "/usr/local/bin/candidate"
//	protocol = "uci"
//	ponder = false
//	  [engine.options]
//	  Hash = "128"
//	  Threads = "1"
type File struct {
	Engines []EngineEntry `toml:"engine"`
	TC      string        `toml:"tc"`
	Concurrency int       `toml:"concurrency"`
	Openings    string    `toml:"openings"`
	SPRT        *SPRTEntry `toml:"sprt"`
}

// EngineEntry is one [[engine]] table.
type EngineEntry struct {
	Name       string            `toml:"name"`
	Path       string            `toml:"path"`
	WorkingDir string            `toml:"workdir"`
	Args       []string          `toml:"args"`
	Protocol   string            `toml:"protocol"`
	Ponder     bool              `toml:"ponder"`
	Options    map[string]string `toml:"options"`
}

// SPRTEntry is the optional [sprt] table.
type SPRTEntry struct {
	Elo0  float64 `toml:"elo0"`
	Elo1  float64 `toml:"elo1"`
	Alpha float64 `toml:"alpha"`
	Beta  float64 `toml:"beta"`
}

// Load parses a TOML config file at path.
func Load(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("config: parsing %v: %w", path, err)
	}
	return &f, nil
}

// Manager enforces spec.md §4.1's uniqueness invariant: no two registered
// engines may share a display name.
type Manager struct {
	byName map[string]protocol.EngineConfig
	order  []string
}

// NewManager creates an empty EngineConfigManager.
func NewManager() *Manager {
	return &Manager{byName: map[string]protocol.EngineConfig{}}
}

// Add registers cfg, rejecting a name collision.
func (m *Manager) Add(cfg protocol.EngineConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, exists := m.byName[cfg.Name]; exists {
		return fmt.Errorf("config: duplicate engine name %q", cfg.Name)
	}
	m.byName[cfg.Name] = cfg
	m.order = append(m.order, cfg.Name)
	return nil
}

// Get looks up a registered engine by name.
func (m *Manager) Get(name string) (protocol.EngineConfig, bool) {
	cfg, ok := m.byName[name]
	return cfg, ok
}

// All returns every registered engine, in registration order.
func (m *Manager) All() []protocol.EngineConfig {
	out := make([]protocol.EngineConfig, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.byName[name])
	}
	return out
}

// LoadManager parses path and loads every [[engine]] table into a fresh
// Manager, resolving each entry's protocol string. The file's TC string is
// returned unparsed in the File.
func LoadManager(path string) (*Manager, *File, error) {
	f, err := Load(path)
	if err != nil {
		return nil, nil, err
	}

	mgr := NewManager()
	for _, e := range f.Engines {
		cfg, err := toEngineConfig(e)
		if err != nil {
			return nil, nil, err
		}
		if err := mgr.Add(cfg); err != nil {
			return nil, nil, err
		}
	}
	return mgr, f, nil
}

func toEngineConfig(e EngineEntry) (protocol.EngineConfig, error) {
	variant, err := parseProtocol(e.Protocol)
	if err != nil {
		return protocol.EngineConfig{}, fmt.Errorf("config: engine %q: %w", e.Name, err)
	}
	return protocol.EngineConfig{
		Name:       e.Name,
		Path:       e.Path,
		WorkingDir: e.WorkingDir,
		Args:       e.Args,
		Protocol:   variant,
		Ponder:     e.Ponder,
		Options:    e.Options,
	}, nil
}

func parseProtocol(s string) (protocol.Variant, error) {
	switch s {
	case "uci", "":
		return protocol.UCI, nil
	case "xboard", "winboard":
		return protocol.XBoard, nil
	default:
		return protocol.Unknown, fmt.Errorf("unknown protocol %q", s)
	}
}
