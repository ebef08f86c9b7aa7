// Package inspect renders a report of what a pipeline run would execute:
// the build command, the resolved deploy configuration, and each plugin
// with its lifecycle events.
package inspect

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/berthci/berth/internal/backup"
	"github.com/berthci/berth/internal/build"
	"github.com/berthci/berth/internal/deployconfig"
	"github.com/berthci/berth/internal/fsio"
	"github.com/berthci/berth/internal/plugin"
)

// Report is the structured JSON representation of a pipeline report.
type Report struct {
	BuildDir      string       `json:"build_dir"`
	Command       string       `json:"command,omitempty"`
	Context       string       `json:"context,omitempty"`
	Branch        string       `json:"branch,omitempty"`
	ConfigPath    string       `json:"config_path"`
	ConfigPresent bool         `json:"config_present"`
	Headers       int          `json:"headers"`
	Redirects     int          `json:"redirects"`
	Contexts      []string     `json:"contexts,omitempty"`
	Plugins       []PluginInfo `json:"plugins"`
}

// PluginInfo is one referenced plugin and its resolution state.
type PluginInfo struct {
	Package string   `json:"package"`
	Version string   `json:"version,omitempty"`
	Loaded  bool     `json:"loaded"`
	Events  []string `json:"events,omitempty"`
}

// BuildReport renders a terminal-friendly pipeline report.
func BuildReport(fs afero.Fs, cfg *build.PipelineConfig, registry *plugin.Registry, paths backup.Paths, buildDir string) (string, error) {
	report, err := gatherReportData(fs, cfg, registry, paths, buildDir)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Pipeline Report\n")
	fmt.Fprintf(&out, "Build Dir   : %s\n", report.BuildDir)
	fmt.Fprintf(&out, "Command     : %s\n", renderUnset(report.Command, "<none>"))
	fmt.Fprintf(&out, "Context     : %s\n", renderUnset(report.Context, "<none>"))
	fmt.Fprintf(&out, "Branch      : %s\n", renderUnset(report.Branch, "<none>"))
	fmt.Fprintf(&out, "Config      : %s", report.ConfigPath)
	if !report.ConfigPresent {
		out.WriteString(" (absent)")
	}
	out.WriteString("\n")
	if report.ConfigPresent {
		fmt.Fprintf(&out, "Headers     : %d\n", report.Headers)
		fmt.Fprintf(&out, "Redirects   : %d\n", report.Redirects)
		if len(report.Contexts) > 0 {
			fmt.Fprintf(&out, "Contexts    : %s\n", strings.Join(report.Contexts, ", "))
		}
	}
	fmt.Fprintf(&out, "\n")

	if len(report.Plugins) == 0 {
		out.WriteString("No plugins referenced.\n")
	}
	for i, p := range report.Plugins {
		if p.Version != "" {
			fmt.Fprintf(&out, "[%d] %s (%s)\n", i+1, p.Package, p.Version)
		} else {
			fmt.Fprintf(&out, "[%d] %s\n", i+1, p.Package)
		}
		if p.Loaded {
			fmt.Fprintf(&out, "    loaded : yes\n")
			fmt.Fprintf(&out, "    events : %s\n", renderUnset(strings.Join(p.Events, ", "), "<none>"))
		} else {
			fmt.Fprintf(&out, "    loaded : no\n")
		}
	}

	return strings.TrimRight(out.String(), "\n") + "\n", nil
}

// BuildJSONReport returns the machine-readable JSON pipeline report.
func BuildJSONReport(fs afero.Fs, cfg *build.PipelineConfig, registry *plugin.Registry, paths backup.Paths, buildDir string) (string, error) {
	report, err := gatherReportData(fs, cfg, registry, paths, buildDir)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json report: %w", err)
	}
	return string(data), nil
}

func gatherReportData(fs afero.Fs, cfg *build.PipelineConfig, registry *plugin.Registry, paths backup.Paths, buildDir string) (*Report, error) {
	report := &Report{
		BuildDir:   buildDir,
		Command:    cfg.Command,
		Context:    cfg.Context,
		Branch:     cfg.Branch,
		ConfigPath: paths.Config,
		Plugins:    make([]PluginInfo, 0, len(cfg.Plugins)),
	}

	data, found, err := fsio.ReadFileIfExists(fs, paths.Config)
	if err != nil {
		return nil, fmt.Errorf("read deploy configuration: %w", err)
	}
	if found {
		dc, err := deployconfig.Parse(data)
		if err != nil {
			return nil, err
		}
		report.ConfigPresent = true
		report.Headers = len(dc.Headers)
		report.Redirects = len(dc.Redirects)
		for name := range dc.Contexts {
			report.Contexts = append(report.Contexts, name)
		}
		sort.Strings(report.Contexts)
	}

	for _, ref := range cfg.Plugins {
		info := PluginInfo{Package: ref.Package}
		if p, ok := registry.Get(ref.Package); ok {
			info.Loaded = true
			info.Version = p.Info.Version
			for _, ev := range p.Events() {
				info.Events = append(info.Events, string(ev))
			}
		}
		report.Plugins = append(report.Plugins, info)
	}

	return report, nil
}

func renderUnset(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
