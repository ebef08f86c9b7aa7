// Package doctor validates a pipeline configuration and the deploy artifacts
// in the build directory before a run.
package doctor

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"github.com/berthci/berth/internal/backup"
	"github.com/berthci/berth/internal/build"
	"github.com/berthci/berth/internal/deployconfig"
	"github.com/berthci/berth/internal/fsio"
	"github.com/berthci/berth/internal/plugin"
	"github.com/berthci/berth/internal/rules"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a pipeline against the loaded plugins and the deploy
// artifacts on disk.
type Doctor struct {
	fs       afero.Fs
	cfg      *build.PipelineConfig
	registry *plugin.Registry
	paths    backup.Paths
}

// New creates a Doctor for the pipeline config, plugin registry, and the
// artifact layout of the build directory.
func New(fs afero.Fs, cfg *build.PipelineConfig, registry *plugin.Registry, paths backup.Paths) *Doctor {
	return &Doctor{fs: fs, cfg: cfg, registry: registry, paths: paths}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validatePipeline(r)
	d.validatePluginRefs(r)
	d.validateDeployConfig(r)
	d.validateSideFiles(r)
	d.warnUnusedPlugins(r)
	d.warnMissingEnvVars(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validatePipeline checks the pipeline declaration itself.
func (d *Doctor) validatePipeline(r *Result) {
	if d.cfg.Command == "" && len(d.cfg.Plugins) == 0 {
		d.addError(r, "pipeline", "command", "pipeline declares neither a command nor plugins")
	}
	if d.cfg.Branch != "" && d.cfg.Context == "" {
		d.addWarning(r, "pipeline", "branch",
			fmt.Sprintf("branch %q set without a context; branch-scoped configuration still applies", d.cfg.Branch))
	}
}

// validatePluginRefs checks that referenced plugins are loaded and handle at
// least one event.
func (d *Doctor) validatePluginRefs(r *Result) {
	for i, ref := range d.cfg.Plugins {
		field := fmt.Sprintf("plugins[%d]", i)
		p, ok := d.registry.Get(ref.Package)
		if !ok {
			d.addError(r, "plugin_refs", field,
				fmt.Sprintf("plugin %q in pipeline but not loaded", ref.Package))
			continue
		}
		if len(p.Events()) == 0 {
			d.addWarning(r, "plugin_refs", field,
				fmt.Sprintf("plugin %q handles no lifecycle events", ref.Package))
		}
	}
}

// validateDeployConfig checks that the deploy configuration file, when
// present, parses and that its context sections are named.
func (d *Doctor) validateDeployConfig(r *Result) {
	data, found, err := fsio.ReadFileIfExists(d.fs, d.paths.Config)
	if err != nil {
		d.addError(r, "deploy_config", "", fmt.Sprintf("read %s: %v", d.paths.Config, err))
		return
	}
	if !found {
		return
	}

	cfg, err := deployconfig.Parse(data)
	if err != nil {
		d.addError(r, "deploy_config", "", fmt.Sprintf("parse %s: %v", d.paths.Config, err))
		return
	}

	for name := range cfg.Contexts {
		if strings.TrimSpace(name) == "" {
			d.addError(r, "deploy_config", "context", "context section with empty name")
		}
	}
	if d.cfg.Context != "" && len(cfg.Contexts) > 0 {
		if _, ok := cfg.Contexts[d.cfg.Context]; !ok {
			if _, ok := cfg.Contexts[d.cfg.Branch]; !ok {
				d.addWarning(r, "deploy_config", "context",
					fmt.Sprintf("no context section matches %q; top-level configuration applies unchanged", d.cfg.Context))
			}
		}
	}
}

// validateSideFiles checks that _headers and _redirects parse.
func (d *Doctor) validateSideFiles(r *Result) {
	if data, found, err := fsio.ReadFileIfExists(d.fs, d.paths.Headers); err != nil {
		d.addError(r, "side_files", "_headers", err.Error())
	} else if found {
		if _, err := rules.ParseHeaders(data); err != nil {
			d.addError(r, "side_files", "_headers", err.Error())
		}
	}

	data, found, err := fsio.ReadFileIfExists(d.fs, d.paths.Redirects)
	if err != nil {
		d.addError(r, "side_files", "_redirects", err.Error())
		return
	}
	if !found {
		return
	}
	parsed, err := rules.ParseRedirects(data)
	if err != nil {
		d.addError(r, "side_files", "_redirects", err.Error())
		return
	}
	for _, rule := range parsed {
		if rule.Status == 0 {
			d.addWarning(r, "side_files", "_redirects",
				fmt.Sprintf("redirect %q has no status; %d assumed", rule.From, rules.DefaultRedirectStatus))
		}
	}
}

// warnUnusedPlugins warns about loaded plugins the pipeline never references.
func (d *Doctor) warnUnusedPlugins(r *Result) {
	referenced := make(map[string]struct{}, len(d.cfg.Plugins))
	for _, ref := range d.cfg.Plugins {
		referenced[ref.Package] = struct{}{}
	}
	for _, p := range d.registry.All() {
		if _, ok := referenced[p.Info.Name]; !ok {
			d.addWarning(r, "unused", "",
				fmt.Sprintf("plugin %q loaded but not referenced in pipeline", p.Info.Name))
		}
	}
}

// warnMissingEnvVars warns about ${VAR} references in the build command where
// VAR is not set.
func (d *Doctor) warnMissingEnvVars(r *Result) {
	envVarRe := regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	for _, m := range envVarRe.FindAllStringSubmatch(d.cfg.Command, -1) {
		if os.Getenv(m[1]) == "" {
			d.addWarning(r, "env_vars", "command",
				fmt.Sprintf("environment variable ${%s} not set", m[1]))
		}
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
