package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berthci/berth/internal/command"
	"github.com/berthci/berth/internal/lifecycle"
)

func noopHook(ctx context.Context, in HookInput) (HookOutput, error) {
	return HookOutput{}, nil
}

func testPlugin(name string, events ...lifecycle.Event) *Plugin {
	hooks := make(map[lifecycle.Event]HookFunc, len(events))
	for _, ev := range events {
		hooks[ev] = noopHook
	}
	return &Plugin{
		Info:  command.PackageInfo{Name: name},
		Hooks: hooks,
	}
}

func TestRegistryAddGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Add(testPlugin("plugin-a", lifecycle.EventBuild)))

	p, ok := r.Get("plugin-a")
	require.True(t, ok)
	assert.Equal(t, "plugin-a", p.Info.Name)

	_, ok = r.Get("plugin-missing")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicatesAndUnnamed(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Add(testPlugin("plugin-a", lifecycle.EventBuild)))
	assert.Error(t, r.Add(testPlugin("plugin-a", lifecycle.EventBuild)))
	assert.Error(t, r.Add(testPlugin("", lifecycle.EventBuild)))
}

func TestRegistryAllPreservesRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, name := range []string{"plugin-c", "plugin-a", "plugin-b"} {
		require.NoError(t, r.Add(testPlugin(name, lifecycle.EventBuild)))
	}

	var got []string
	for _, p := range r.All() {
		got = append(got, p.Info.Name)
	}
	assert.Equal(t, []string{"plugin-c", "plugin-a", "plugin-b"}, got)
}

func TestPluginEventsInExecutionOrder(t *testing.T) {
	t.Parallel()

	p := testPlugin("plugin-a", lifecycle.EventEnd, lifecycle.EventPreBuild, lifecycle.EventError)
	assert.Equal(t, []lifecycle.Event{
		lifecycle.EventPreBuild,
		lifecycle.EventError,
		lifecycle.EventEnd,
	}, p.Events())

	_, ok := p.Hook(lifecycle.EventPreBuild)
	assert.True(t, ok)
	_, ok = p.Hook(lifecycle.EventBuild)
	assert.False(t, ok)
}

func TestParseManifest(t *testing.T) {
	t.Parallel()

	m, err := ParseManifest([]byte(`
name: plugin-sitemap
version: 1.2.0
description: Generates a sitemap after the build.
events:
  - onPostBuild
  - onSuccess
`))
	require.NoError(t, err)
	assert.Equal(t, "plugin-sitemap", m.Name)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t, []string{"onPostBuild", "onSuccess"}, m.Events)
}

func TestParseManifestRejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		yaml string
	}{
		{"missing name", "events: [onBuild]"},
		{"blank name", "name: \"  \"\nevents: [onBuild]"},
		{"no events", "name: plugin-a"},
		{"unknown event", "name: plugin-a\nevents: [onDeploy]"},
		{"bad yaml", "name: [unterminated"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseManifest([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestFromManifestRequiresHookBijection(t *testing.T) {
	t.Parallel()

	m := Manifest{Name: "plugin-a", Events: []string{"onPreBuild", "onPostBuild"}}

	full := map[lifecycle.Event]HookFunc{
		lifecycle.EventPreBuild:  noopHook,
		lifecycle.EventPostBuild: noopHook,
	}
	p, err := FromManifest(m, command.OriginConfig, command.LoadPackage, full)
	require.NoError(t, err)
	assert.Equal(t, "plugin-a", p.Info.Name)
	assert.Equal(t, command.LoadPackage, p.LoadOrigin)

	// Declared but unresolved.
	_, err = FromManifest(m, command.OriginConfig, command.LoadPackage, map[lifecycle.Event]HookFunc{
		lifecycle.EventPreBuild: noopHook,
	})
	assert.Error(t, err)

	// Resolved but undeclared.
	_, err = FromManifest(m, command.OriginConfig, command.LoadPackage, map[lifecycle.Event]HookFunc{
		lifecycle.EventPreBuild:  noopHook,
		lifecycle.EventPostBuild: noopHook,
		lifecycle.EventEnd:       noopHook,
	})
	assert.Error(t, err)
}
