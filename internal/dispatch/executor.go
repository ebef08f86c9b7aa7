package dispatch

import (
	"context"

	"github.com/berthci/berth/internal/command"
	"github.com/berthci/berth/internal/deployconfig"
	"github.com/berthci/berth/internal/lifecycle"
)

// ExecResult is the raw outcome an executor reports before the dispatcher
// attaches timing and classifies failures.
type ExecResult struct {
	EnvChanges map[string]string
	Mutations  []deployconfig.Mutation
	Status     *command.Status
}

// CoreOptions parameterize a built-in command invocation.
type CoreOptions struct {
	ID        string
	Name      string
	BuildDir  string
	Constants Constants
}

// ShellOptions parameterize a user-declared build command invocation.
type ShellOptions struct {
	Command    string
	Origin     command.Origin
	ConfigPath string
	BuildDir   string
	NodePath   string
	Env        map[string]string
}

// PluginOptions parameterize a plugin hook invocation.
type PluginOptions struct {
	Event       lifecycle.Event
	PackageName string
	PackageInfo command.PackageInfo
	LoadOrigin  command.LoadOrigin
	Env         map[string]string
	Constants   Constants
}

// Executor runs commands on behalf of the dispatcher. The three methods
// correspond to the three command variants; implementations live outside
// the dispatcher (internal/shell provides the defaults).
type Executor interface {
	RunCoreCommand(ctx context.Context, opts CoreOptions) (ExecResult, error)
	RunBuildCommand(ctx context.Context, opts ShellOptions) (ExecResult, error)
	RunPluginCommand(ctx context.Context, opts PluginOptions) (ExecResult, error)
}
