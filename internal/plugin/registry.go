// Package plugin holds the registry of loaded plugin packages. Each entry is
// a statically-typed handle exposing the fixed set of lifecycle-event entry
// points; how the handle's hook functions came to exist (module resolution,
// in-tree registration) is the loader's business, not the registry's.
package plugin

import (
	"context"
	"fmt"

	"github.com/berthci/berth/internal/command"
	"github.com/berthci/berth/internal/deployconfig"
	"github.com/berthci/berth/internal/lifecycle"
)

// HookInput is what a lifecycle hook receives when invoked.
type HookInput struct {
	Event      lifecycle.Event
	BuildDir   string
	ConfigPath string
	Env        map[string]string
}

// HookOutput is what a lifecycle hook may return on success.
type HookOutput struct {
	EnvChanges map[string]string
	Mutations  []deployconfig.Mutation
	Status     *command.Status
}

// HookFunc is one lifecycle-event entry point of a plugin package.
type HookFunc func(ctx context.Context, in HookInput) (HookOutput, error)

// Plugin is a loaded plugin package and its event handlers.
type Plugin struct {
	Info       command.PackageInfo
	Origin     command.Origin
	LoadOrigin command.LoadOrigin
	Hooks      map[lifecycle.Event]HookFunc
}

// Hook returns the handler for event, if the plugin declares one.
func (p *Plugin) Hook(event lifecycle.Event) (HookFunc, bool) {
	fn, ok := p.Hooks[event]
	return fn, ok
}

// Events returns the lifecycle events the plugin handles, in execution order.
func (p *Plugin) Events() []lifecycle.Event {
	var out []lifecycle.Event
	for _, ev := range lifecycle.Ordered() {
		if _, ok := p.Hooks[ev]; ok {
			out = append(out, ev)
		}
	}
	return out
}

// Registry holds loaded plugins indexed by package name.
type Registry struct {
	plugins map[string]*Plugin
	order   []string
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]*Plugin),
	}
}

// Get retrieves a plugin by package name.
func (r *Registry) Get(name string) (*Plugin, bool) {
	p, ok := r.plugins[name]
	return p, ok
}

// All returns all registered plugins in registration order.
func (r *Registry) All() []*Plugin {
	out := make([]*Plugin, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.plugins[name])
	}
	return out
}

// Add registers a plugin in the registry.
func (r *Registry) Add(p *Plugin) error {
	if p.Info.Name == "" {
		return fmt.Errorf("plugin package name is required")
	}
	if _, exists := r.plugins[p.Info.Name]; exists {
		return fmt.Errorf("plugin %q already registered", p.Info.Name)
	}
	r.plugins[p.Info.Name] = p
	r.order = append(r.order, p.Info.Name)
	return nil
}
