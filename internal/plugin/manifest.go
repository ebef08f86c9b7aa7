package plugin

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/berthci/berth/internal/command"
	"github.com/berthci/berth/internal/lifecycle"
)

// Manifest declares a plugin package: its identity and which lifecycle
// events it handles. Manifests ship as manifest.yaml next to the plugin.
type Manifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Events      []string `yaml:"events"`
}

// ParseManifest decodes and validates a manifest.yaml payload.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest YAML: %w", err)
	}
	if err := validateManifest(&m); err != nil {
		return Manifest{}, fmt.Errorf("invalid manifest: %w", err)
	}
	return m, nil
}

func validateManifest(m *Manifest) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(m.Events) == 0 {
		return fmt.Errorf("at least one event must be declared")
	}
	for _, ev := range m.Events {
		if !lifecycle.Event(ev).Known() {
			return fmt.Errorf("unknown event %q (valid: %v)", ev, lifecycle.Ordered())
		}
	}
	return nil
}

// FromManifest builds a registry handle from a validated manifest and the
// hook functions the loader resolved for it. Every declared event must have
// a hook and vice versa.
func FromManifest(m Manifest, origin command.Origin, loadOrigin command.LoadOrigin, hooks map[lifecycle.Event]HookFunc) (*Plugin, error) {
	declared := make(map[lifecycle.Event]struct{}, len(m.Events))
	for _, ev := range m.Events {
		declared[lifecycle.Event(ev)] = struct{}{}
	}
	for ev := range hooks {
		if _, ok := declared[ev]; !ok {
			return nil, fmt.Errorf("plugin %q resolves hook for undeclared event %q", m.Name, ev)
		}
	}
	for ev := range declared {
		if _, ok := hooks[ev]; !ok {
			return nil, fmt.Errorf("plugin %q declares event %q but resolves no hook", m.Name, ev)
		}
	}

	return &Plugin{
		Info:       command.PackageInfo{Name: m.Name, Version: m.Version},
		Origin:     origin,
		LoadOrigin: loadOrigin,
		Hooks:      hooks,
	}, nil
}
