package inspect

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berthci/berth/internal/backup"
	"github.com/berthci/berth/internal/build"
	"github.com/berthci/berth/internal/command"
	"github.com/berthci/berth/internal/lifecycle"
	"github.com/berthci/berth/internal/plugin"
)

func reportFixture(t *testing.T) (afero.Fs, *build.PipelineConfig, *plugin.Registry, backup.Paths) {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/site/deploy.toml", []byte(`
[build]
command = "npm run build"

[[redirects]]
from = "/api"
to = "/.netlify/functions/api"
status = 200

[context.production.build]
command = "npm run build:prod"
`), 0o644))

	reg := plugin.NewRegistry()
	require.NoError(t, reg.Add(&plugin.Plugin{
		Info: command.PackageInfo{Name: "plugin-sitemap", Version: "1.2.0"},
		Hooks: map[lifecycle.Event]plugin.HookFunc{
			lifecycle.EventPostBuild: func(ctx context.Context, in plugin.HookInput) (plugin.HookOutput, error) {
				return plugin.HookOutput{}, nil
			},
			lifecycle.EventSuccess: func(ctx context.Context, in plugin.HookInput) (plugin.HookOutput, error) {
				return plugin.HookOutput{}, nil
			},
		},
	}))

	cfg := &build.PipelineConfig{
		Command: "npm run build",
		Context: "production",
		Plugins: []build.PluginRef{{Package: "plugin-sitemap"}, {Package: "plugin-missing"}},
	}
	return fs, cfg, reg, backup.PathsFor("/site", "/site/deploy.toml")
}

func TestBuildReport(t *testing.T) {
	t.Parallel()

	fs, cfg, reg, paths := reportFixture(t)
	out, err := BuildReport(fs, cfg, reg, paths, "/site")
	require.NoError(t, err)

	assert.Contains(t, out, "Pipeline Report")
	assert.Contains(t, out, "Command     : npm run build")
	assert.Contains(t, out, "Context     : production")
	assert.Contains(t, out, "Branch      : <none>")
	assert.Contains(t, out, "Redirects   : 1")
	assert.Contains(t, out, "Contexts    : production")
	assert.Contains(t, out, "[1] plugin-sitemap (1.2.0)")
	assert.Contains(t, out, "events : onPostBuild, onSuccess")
	assert.Contains(t, out, "[2] plugin-missing")
	assert.Contains(t, out, "loaded : no")
}

func TestBuildReportAbsentConfig(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	cfg := &build.PipelineConfig{Command: "make"}
	out, err := BuildReport(fs, cfg, plugin.NewRegistry(), backup.PathsFor("/site", "/site/deploy.toml"), "/site")
	require.NoError(t, err)

	assert.Contains(t, out, "(absent)")
	assert.Contains(t, out, "No plugins referenced.")
	assert.NotContains(t, out, "Headers")
}

func TestBuildJSONReport(t *testing.T) {
	t.Parallel()

	fs, cfg, reg, paths := reportFixture(t)
	out, err := BuildJSONReport(fs, cfg, reg, paths, "/site")
	require.NoError(t, err)

	var report Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.ConfigPresent)
	assert.Equal(t, 1, report.Redirects)
	assert.Equal(t, []string{"production"}, report.Contexts)
	require.Len(t, report.Plugins, 2)
	assert.True(t, report.Plugins[0].Loaded)
	assert.False(t, report.Plugins[1].Loaded)
}

func TestBuildReportMalformedConfig(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/site/deploy.toml", []byte("[build\n"), 0o644))

	_, err := BuildReport(fs, &build.PipelineConfig{Command: "make"},
		plugin.NewRegistry(), backup.PathsFor("/site", "/site/deploy.toml"), "/site")
	assert.Error(t, err)
}
