// Package deployconfig merges transient configuration mutations produced by
// commands and plugins with the user-authored deploy configuration file,
// persists the result for the deploy step, and restores the pre-mutation
// state afterward via the backup manager.
package deployconfig

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/berthci/berth/internal/rules"
)

// BuildSettings is the `[build]` section of the deploy configuration.
type BuildSettings struct {
	Command     string            `toml:"command,omitempty"`
	Publish     string            `toml:"publish,omitempty"`
	Environment map[string]string `toml:"environment,omitempty"`
}

// ContextConfig is a context- or branch-scoped override section.
type ContextConfig struct {
	Build     *BuildSettings       `toml:"build,omitempty"`
	Headers   []rules.HeaderRule   `toml:"headers,omitempty"`
	Redirects []rules.RedirectRule `toml:"redirects,omitempty"`
}

// Config is the deploy configuration: what the deploy step reads from the
// build descriptor file.
type Config struct {
	Build     *BuildSettings           `toml:"build,omitempty"`
	Headers   []rules.HeaderRule       `toml:"headers,omitempty"`
	Redirects []rules.RedirectRule     `toml:"redirects,omitempty"`
	Contexts  map[string]ContextConfig `toml:"context,omitempty"`
}

// Parse decodes a deploy configuration file.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse deploy configuration: %w", err)
	}
	return cfg, nil
}

// Serialize encodes cfg for persistence.
func Serialize(cfg Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("serialize deploy configuration: %w", err)
	}
	return data, nil
}

// Merge deep-merges overlay onto base: array-valued fields concatenate with
// base's entries first, scalar fields take the overlay value when present.
func Merge(base, overlay Config) Config {
	out := Config{
		Build:     mergeBuild(base.Build, overlay.Build),
		Headers:   append(append([]rules.HeaderRule(nil), base.Headers...), overlay.Headers...),
		Redirects: append(append([]rules.RedirectRule(nil), base.Redirects...), overlay.Redirects...),
	}

	if len(base.Contexts)+len(overlay.Contexts) > 0 {
		out.Contexts = make(map[string]ContextConfig, len(base.Contexts)+len(overlay.Contexts))
		for name, cc := range base.Contexts {
			out.Contexts[name] = cc
		}
		for name, cc := range overlay.Contexts {
			if existing, ok := out.Contexts[name]; ok {
				out.Contexts[name] = mergeContext(existing, cc)
			} else {
				out.Contexts[name] = cc
			}
		}
	}

	return out
}

func mergeContext(base, overlay ContextConfig) ContextConfig {
	return ContextConfig{
		Build:     mergeBuild(base.Build, overlay.Build),
		Headers:   append(append([]rules.HeaderRule(nil), base.Headers...), overlay.Headers...),
		Redirects: append(append([]rules.RedirectRule(nil), base.Redirects...), overlay.Redirects...),
	}
}

func mergeBuild(base, overlay *BuildSettings) *BuildSettings {
	if base == nil && overlay == nil {
		return nil
	}
	out := &BuildSettings{}
	if base != nil {
		*out = *base
		out.Environment = copyMap(base.Environment)
	}
	if overlay != nil {
		if overlay.Command != "" {
			out.Command = overlay.Command
		}
		if overlay.Publish != "" {
			out.Publish = overlay.Publish
		}
		for k, v := range overlay.Environment {
			if out.Environment == nil {
				out.Environment = make(map[string]string)
			}
			out.Environment[k] = v
		}
	}
	return out
}

// ResolveContext folds the sections scoped to the deploy context and branch
// onto the top level, branch last so the more specific match wins, and drops
// all context sections. Environment-specific settings become concrete values
// this way before any merge with file-based configuration happens.
func (c Config) ResolveContext(contextName, branch string) Config {
	out := c
	for _, name := range []string{contextName, branch} {
		if name == "" {
			continue
		}
		scoped, ok := c.Contexts[name]
		if !ok {
			continue
		}
		out = Merge(out, Config{
			Build:     scoped.Build,
			Headers:   scoped.Headers,
			Redirects: scoped.Redirects,
		})
	}
	out.Contexts = nil
	return out
}

// Simplify drops empty and default sections so the persisted file contains
// only meaningful content.
func (c Config) Simplify() Config {
	out := c
	if out.Build != nil && out.Build.Command == "" && out.Build.Publish == "" && len(out.Build.Environment) == 0 {
		out.Build = nil
	}
	if len(out.Headers) == 0 {
		out.Headers = nil
	}
	if len(out.Redirects) == 0 {
		out.Redirects = nil
	}
	if len(out.Contexts) == 0 {
		out.Contexts = nil
	}
	return out
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
