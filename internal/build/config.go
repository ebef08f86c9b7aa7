package build

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PluginRef names a plugin package the pipeline should run.
type PluginRef struct {
	Package string `yaml:"package"`
}

// PipelineConfig is the berth.yaml file describing one build pipeline.
type PipelineConfig struct {
	// Command is the user-declared shell build command, optional.
	Command string `yaml:"command,omitempty"`
	// ConfigPath overrides the deploy configuration file location,
	// relative paths resolve against the build directory.
	ConfigPath string `yaml:"config,omitempty"`
	// Context is the deploy context name, e.g. "production".
	Context string `yaml:"context,omitempty"`
	// Branch is the branch being built.
	Branch  string      `yaml:"branch,omitempty"`
	Plugins []PluginRef `yaml:"plugins,omitempty"`
}

// LoadPipelineConfig reads and validates a berth.yaml file.
func LoadPipelineConfig(configPath string) (*PipelineConfig, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s", absPath)
	}

	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse pipeline config: %w", err)
	}

	if err := validatePipelineConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func validatePipelineConfig(cfg *PipelineConfig) error {
	seen := make(map[string]struct{}, len(cfg.Plugins))
	for i, ref := range cfg.Plugins {
		name := strings.TrimSpace(ref.Package)
		if name == "" {
			return fmt.Errorf("plugins[%d]: package is required", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("plugins[%d]: duplicate package %q", i, name)
		}
		seen[name] = struct{}{}
		cfg.Plugins[i].Package = name
	}
	if cfg.Command == "" && len(cfg.Plugins) == 0 {
		return fmt.Errorf("pipeline declares neither a command nor plugins")
	}
	return nil
}
