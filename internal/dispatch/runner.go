package dispatch

import (
	"context"
	"fmt"

	"github.com/berthci/berth/internal/command"
	"github.com/berthci/berth/internal/timer"
)

// execute selects the executor for the command's variant, invokes it, and
// measures wall-clock time around the invocation. A failing executor still
// produces a measured duration; its error is returned unchanged after the
// span is recorded.
func (d *Dispatcher) execute(ctx context.Context, cmd command.Command, st BuildState, constants Constants) (command.Result, error) {
	var (
		raw    ExecResult
		parent string
		name   string
	)

	var run func() error
	switch cmd.Variant() {
	case command.VariantCore:
		name = cmd.CoreCommandID
		run = func() error {
			var err error
			raw, err = d.executor.RunCoreCommand(ctx, CoreOptions{
				ID:        cmd.CoreCommandID,
				Name:      cmd.CoreCommandName,
				BuildDir:  st.BuildDir,
				Constants: constants,
			})
			return err
		}
	case command.VariantBuild:
		name = "build.command"
		run = func() error {
			var err error
			raw, err = d.executor.RunBuildCommand(ctx, ShellOptions{
				Command:    cmd.BuildCommand,
				Origin:     cmd.BuildCommandOrigin,
				ConfigPath: constants.ConfigPath,
				BuildDir:   st.BuildDir,
				NodePath:   st.NodePath,
				Env:        st.Env,
			})
			return err
		}
	case command.VariantPlugin:
		parent = "plugin:" + cmd.PackageName
		name = string(cmd.Event)
		run = func() error {
			var err error
			raw, err = d.executor.RunPluginCommand(ctx, PluginOptions{
				Event:       cmd.Event,
				PackageName: cmd.PackageName,
				PackageInfo: cmd.PackageInfo,
				LoadOrigin:  cmd.LoadOrigin,
				Env:         st.Env,
				Constants:   constants,
			})
			return err
		}
	default:
		return command.Result{}, fmt.Errorf("command for event %s has no variant populated", cmd.Event)
	}

	span, err := timer.Measure(parent, name, run)

	return command.Result{
		EnvChanges: raw.EnvChanges,
		Mutations:  raw.Mutations,
		Status:     raw.Status,
		Span:       span,
		Duration:   span.Duration,
	}, err
}
