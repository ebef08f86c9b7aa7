// Package build sequences a whole build: it assembles the command list,
// dispatches each command in order, owns the error flag / failed-plugin set
// / mutation log, and brackets the deploy step with the configuration
// update and restore.
package build

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/berthci/berth/internal/backup"
	"github.com/berthci/berth/internal/command"
	"github.com/berthci/berth/internal/deployconfig"
	"github.com/berthci/berth/internal/dispatch"
	"github.com/berthci/berth/internal/lifecycle"
	"github.com/berthci/berth/internal/log"
	"github.com/berthci/berth/internal/plugin"
	"github.com/berthci/berth/internal/timer"
)

// Options parameterize one build run.
type Options struct {
	BuildDir   string
	ConfigPath string
	NodePath   string

	// Command is the user-declared shell build command, optional.
	Command       string
	CommandOrigin command.Origin

	// Context and Branch resolve environment-scoped configuration.
	Context string
	Branch  string

	// DeployCommandID names the core command bracketed by the
	// configuration update and restore; empty skips the deploy step.
	DeployCommandID string

	// Env seeds the environment-variable changes merged forward.
	Env map[string]string
}

// Report summarizes a finished build.
type Report struct {
	BuildID string
	// Err is the first build failure; plugin-local failures never set it.
	Err error
	// Commands is how many sequence positions were consumed, skipped
	// commands included.
	Commands int
	// Spans are the timer-tree fragments of every command that ran.
	Spans []timer.Span
	// Mutations is the length of the accumulated configuration mutation log.
	Mutations int
	// FailedPlugins lists plugins disabled during the build.
	FailedPlugins []string
}

// Runner executes builds.
type Runner struct {
	dispatcher *dispatch.Dispatcher
	registry   *plugin.Registry
	updater    *deployconfig.Updater
}

// NewRunner creates a Runner.
func NewRunner(d *dispatch.Dispatcher, registry *plugin.Registry, updater *deployconfig.Updater) *Runner {
	return &Runner{
		dispatcher: d,
		registry:   registry,
		updater:    updater,
	}
}

// run-internal state, caller-owned from the dispatcher's perspective.
type buildState struct {
	opts      Options
	logger    *slog.Logger
	env       map[string]string
	hasError  bool
	firstErr  error
	failed    lifecycle.FailedSet
	mutations []deployconfig.Mutation
	spans     []timer.Span
	index     int
}

// Run executes the full lifecycle for opts. The returned error reports
// infrastructure failures only (configuration merge, backup, restore);
// command failures land in Report.Err.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = filepath.Join(opts.BuildDir, "deploy.toml")
	}

	buildID := uuid.NewString()
	st := &buildState{
		opts:   opts,
		logger: log.WithBuild(buildID),
		env:    make(map[string]string),
		failed: lifecycle.NewFailedSet(),
	}
	for k, v := range opts.Env {
		st.env[k] = v
	}

	st.logger.Info("build started", "dir", opts.BuildDir)

	// Main phases. Mutation order is semantically significant, so commands
	// run strictly one after another.
	for _, cmd := range r.mainCommands(opts) {
		if err := r.dispatchOne(ctx, st, cmd); err != nil {
			return nil, err
		}
	}

	if err := r.deployStep(ctx, st); err != nil {
		return nil, err
	}

	// Post-deploy phases: onError fires only for failed builds, onSuccess
	// only for clean ones, onEnd always. The classifier sorts that out.
	for _, ev := range []lifecycle.Event{lifecycle.EventError, lifecycle.EventSuccess, lifecycle.EventEnd} {
		for _, cmd := range r.pluginCommands(ev) {
			if err := r.dispatchOne(ctx, st, cmd); err != nil {
				return nil, err
			}
		}
	}

	report := &Report{
		BuildID:   buildID,
		Err:       st.firstErr,
		Commands:  st.index,
		Spans:     st.spans,
		Mutations: len(st.mutations),
	}
	for name := range st.failed {
		report.FailedPlugins = append(report.FailedPlugins, name)
	}

	if st.firstErr != nil {
		st.logger.Error("build failed", "error", st.firstErr)
	} else {
		st.logger.Info("build succeeded", "commands", st.index)
	}
	return report, nil
}

// mainCommands assembles the ordered command sequence for the pre-deploy
// phases: plugin onPreBuild hooks, the build command, plugin onBuild hooks,
// plugin onPostBuild hooks.
func (r *Runner) mainCommands(opts Options) []command.Command {
	var out []command.Command
	out = append(out, r.pluginCommands(lifecycle.EventPreBuild)...)

	if opts.Command != "" {
		origin := opts.CommandOrigin
		if origin == "" {
			origin = command.OriginConfig
		}
		out = append(out, command.Command{
			Event:              lifecycle.EventBuild,
			BuildCommand:       opts.Command,
			BuildCommandOrigin: origin,
		})
	}

	out = append(out, r.pluginCommands(lifecycle.EventBuild)...)
	out = append(out, r.pluginCommands(lifecycle.EventPostBuild)...)
	return out
}

func (r *Runner) pluginCommands(event lifecycle.Event) []command.Command {
	var out []command.Command
	for _, p := range r.registry.All() {
		if _, ok := p.Hook(event); !ok {
			continue
		}
		out = append(out, command.Command{
			Event:       event,
			PackageName: p.Info.Name,
			PackageInfo: p.Info,
			LoadOrigin:  p.LoadOrigin,
			Origin:      p.Origin,
		})
	}
	return out
}

func (r *Runner) dispatchOne(ctx context.Context, st *buildState, cmd command.Command) error {
	out, err := r.dispatcher.Run(ctx, cmd, dispatch.BuildState{
		BuildDir:      st.opts.BuildDir,
		ConfigPath:    st.opts.ConfigPath,
		NodePath:      st.opts.NodePath,
		Env:           st.env,
		HasError:      st.hasError,
		FailedPlugins: st.failed,
	}, st.index)
	if err != nil {
		return err
	}

	st.index = out.NextIndex
	if !out.Ran {
		return nil
	}

	for k, v := range out.Result.EnvChanges {
		st.env[k] = v
	}
	st.mutations = append(st.mutations, out.Result.Mutations...)
	st.spans = append(st.spans, out.Result.Span)

	r.recordFailure(st, cmd, out.Result.Err)
	return nil
}

// recordFailure applies a command failure to the build state. The first
// build failure fixes the reported identity; later failures are logged but
// never overwrite it. Plugin-local failures only disable the plugin.
func (r *Runner) recordFailure(st *buildState, cmd command.Command, err error) {
	if err == nil {
		return
	}

	if command.KindOf(err) == command.FailPlugin {
		st.failed.Add(cmd.PackageName)
		st.logger.Warn("plugin disabled for remainder of build",
			"plugin", cmd.PackageName, "event", string(cmd.Event), "error", err)
		return
	}

	if !st.hasError {
		st.hasError = true
		st.firstErr = err
		st.logger.Error("build failure",
			"name", cmd.Name(), "event", string(cmd.Event), "error", err)
		return
	}
	st.logger.Error("additional failure after build already failed",
		"name", cmd.Name(), "event", string(cmd.Event), "error", err)
}

// deployStep persists accumulated configuration mutations, runs the deploy
// core command, and restores the pre-mutation state. Nothing happens for a
// failed build or an empty mutation log beyond the deploy dispatch itself.
func (r *Runner) deployStep(ctx context.Context, st *buildState) error {
	if st.hasError || st.opts.DeployCommandID == "" {
		return nil
	}

	paths := backup.PathsFor(st.opts.BuildDir, st.opts.ConfigPath)
	mutationOpts := deployconfig.Options{Context: st.opts.Context, Branch: st.opts.Branch}

	if err := r.updater.UpdateConfig(ctx, st.mutations, paths, mutationOpts); err != nil {
		return err
	}

	deployErr := r.dispatchOne(ctx, st, command.Command{
		Event:           lifecycle.EventPostBuild,
		CoreCommandID:   st.opts.DeployCommandID,
		CoreCommandName: "Deploy site",
	})

	if err := r.updater.RestoreConfig(ctx, st.mutations, paths); err != nil {
		return errors.Join(deployErr, err)
	}
	return deployErr
}
