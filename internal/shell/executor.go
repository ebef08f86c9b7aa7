// Package shell provides the default executor set: user-declared build
// commands run as shell subprocesses, plugin hooks run in-process through
// the registry, and core commands run from a registered table.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"syscall"
	"time"

	"github.com/berthci/berth/internal/dispatch"
	"github.com/berthci/berth/internal/log"
	"github.com/berthci/berth/internal/plugin"
)

const (
	// maxStderrBytes caps the amount of stderr captured from a build command.
	maxStderrBytes = 64 * 1024

	// terminationGracePeriod is the time we wait after SIGTERM before sending SIGKILL.
	terminationGracePeriod = 5 * time.Second
)

// CoreFunc implements one built-in command.
type CoreFunc func(ctx context.Context, opts dispatch.CoreOptions) (dispatch.ExecResult, error)

// Executor is the default dispatch.Executor implementation.
type Executor struct {
	registry *plugin.Registry
	core     map[string]CoreFunc
	logger   *slog.Logger

	// Timeout bounds a single build command; zero means unbounded.
	Timeout time.Duration
}

var _ dispatch.Executor = (*Executor)(nil)

// NewExecutor creates an Executor drawing plugin hooks from registry.
func NewExecutor(registry *plugin.Registry) *Executor {
	return &Executor{
		registry: registry,
		core:     make(map[string]CoreFunc),
		logger:   log.WithComponent("shell"),
	}
}

// RegisterCore adds a built-in command under id.
func (e *Executor) RegisterCore(id string, fn CoreFunc) {
	e.core[id] = fn
}

// RunCoreCommand runs a registered built-in command.
func (e *Executor) RunCoreCommand(ctx context.Context, opts dispatch.CoreOptions) (dispatch.ExecResult, error) {
	fn, ok := e.core[opts.ID]
	if !ok {
		return dispatch.ExecResult{}, fmt.Errorf("unknown core command %q", opts.ID)
	}
	return fn(ctx, opts)
}

// RunPluginCommand invokes the plugin's handler for the event.
func (e *Executor) RunPluginCommand(ctx context.Context, opts dispatch.PluginOptions) (dispatch.ExecResult, error) {
	plug, ok := e.registry.Get(opts.PackageName)
	if !ok {
		return dispatch.ExecResult{}, fmt.Errorf("plugin %q not found in registry", opts.PackageName)
	}
	hook, ok := plug.Hook(opts.Event)
	if !ok {
		return dispatch.ExecResult{}, fmt.Errorf("plugin %q has no handler for %s", opts.PackageName, opts.Event)
	}

	log.WithPlugin(opts.PackageName).Debug("invoking hook", "event", string(opts.Event))

	out, err := hook(ctx, plugin.HookInput{
		Event:      opts.Event,
		BuildDir:   opts.Constants.BuildDir,
		ConfigPath: opts.Constants.ConfigPath,
		Env:        opts.Env,
	})
	if err != nil {
		return dispatch.ExecResult{}, err
	}

	return dispatch.ExecResult{
		EnvChanges: out.EnvChanges,
		Mutations:  out.Mutations,
		Status:     out.Status,
	}, nil
}

// RunBuildCommand spawns the user-declared shell command in the build
// directory.
func (e *Executor) RunBuildCommand(ctx context.Context, opts dispatch.ShellOptions) (dispatch.ExecResult, error) {
	cmd := exec.Command("sh", "-c", opts.Command)
	cmd.Dir = opts.BuildDir
	cmd.Env = buildEnv(opts)
	cmd.Stdout = os.Stdout

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.logger.Debug("spawning build command", "command", opts.Command, "dir", opts.BuildDir)

	if err := cmd.Start(); err != nil {
		return dispatch.ExecResult{}, fmt.Errorf("start build command: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	var timeout <-chan time.Time
	if e.Timeout > 0 {
		timer := time.NewTimer(e.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		e.terminate(cmd, waitErr)
		return dispatch.ExecResult{}, ctx.Err()

	case <-timeout:
		e.terminate(cmd, waitErr)
		return dispatch.ExecResult{}, fmt.Errorf("build command timed out after %v", e.Timeout)

	case err := <-waitErr:
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				return dispatch.ExecResult{}, fmt.Errorf("build command exited with status %d: %s",
					exitErr.ExitCode(), truncateStderr(stderr.String()))
			}
			return dispatch.ExecResult{}, fmt.Errorf("wait for build command: %w", err)
		}
		return dispatch.ExecResult{}, nil
	}
}

// terminate sends SIGTERM, waits out the grace period, then SIGKILLs.
func (e *Executor) terminate(cmd *exec.Cmd, waitErr chan error) {
	e.logger.Warn("terminating build command, sending SIGTERM")
	if cmd.Process != nil {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			e.logger.Error("failed to send SIGTERM", "error", err)
		}
	}

	grace := time.NewTimer(terminationGracePeriod)
	defer grace.Stop()

	select {
	case <-waitErr:
		e.logger.Info("build command exited after SIGTERM")
	case <-grace.C:
		e.logger.Warn("build command did not exit after SIGTERM, sending SIGKILL")
		if cmd.Process != nil {
			if err := cmd.Process.Kill(); err != nil {
				e.logger.Error("failed to send SIGKILL", "error", err)
			}
		}
		<-waitErr
	}
}

func buildEnv(opts dispatch.ShellOptions) []string {
	env := os.Environ()
	env = append(env, "CONFIG_PATH="+opts.ConfigPath)
	if opts.NodePath != "" {
		env = append(env, "NODE_PATH="+opts.NodePath)
	}

	keys := make([]string, 0, len(opts.Env))
	for k := range opts.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+opts.Env[k])
	}
	return env
}

func truncateStderr(s string) string {
	if len(s) > maxStderrBytes {
		return s[:maxStderrBytes]
	}
	return s
}
