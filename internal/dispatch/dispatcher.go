package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/berthci/berth/internal/command"
	"github.com/berthci/berth/internal/lifecycle"
	"github.com/berthci/berth/internal/log"
)

// BuildState is the caller-owned view of the build the dispatcher reads.
// The dispatcher never mutates it; the error flag and failed-plugin set are
// updated by the build runner between dispatches.
type BuildState struct {
	BuildDir      string
	ConfigPath    string
	NodePath      string
	Env           map[string]string
	HasError      bool
	FailedPlugins lifecycle.FailedSet
}

// Outcome is what one dispatch produces.
type Outcome struct {
	// Result is zero-valued when the command was ineligible.
	Result command.Result
	// Ran reports whether the command actually executed.
	Ran bool
	// NextIndex is index+1: the sequence position advances for skipped
	// commands too.
	NextIndex int
}

// Dispatcher runs build commands through the failure-domain classifier and
// the timed executor wrapper.
type Dispatcher struct {
	executor  Executor
	logger    *slog.Logger
	constants map[string]Constants
}

// New creates a Dispatcher backed by executor.
func New(executor Executor) *Dispatcher {
	return &Dispatcher{
		executor:  executor,
		logger:    log.WithComponent("dispatch"),
		constants: make(map[string]Constants),
	}
}

// Run dispatches one command at the given sequence position.
//
// A command failure never surfaces as an error here: it is packaged into
// Outcome.Result.Err with its failure domain classified. The returned error
// is reserved for programmer-error inputs such as a command with no variant
// populated.
func (d *Dispatcher) Run(ctx context.Context, cmd command.Command, st BuildState, index int) (Outcome, error) {
	out := Outcome{NextIndex: index + 1}

	constants := d.constantsFor(st.BuildDir, st.ConfigPath)

	if !lifecycle.Eligible(cmd.Event, cmd.PackageName, st.HasError, st.FailedPlugins) {
		return out, nil
	}

	// Observability only: dispatch proceeds no matter what happens to the
	// log entry.
	d.logger.Info("running command",
		"event", string(cmd.Event),
		"origin", string(cmd.Origin),
		"name", cmd.Name(),
		"index", index,
		"build_has_error", st.HasError)

	result, err := d.execute(ctx, cmd, st, constants)
	if err != nil && cmd.Variant() == command.VariantNone {
		return Outcome{}, err
	}

	result.Err = classify(cmd, err)
	out.Result = result
	out.Ran = true
	return out, nil
}

// classify turns a raw executor error into a command.Error carrying the
// failing command's identity and failure domain. Failures in hooks that run
// after the deploy phase (onError, onSuccess, onEnd) never promote to build
// failures; those phases run after irreversible deploy actions.
func classify(cmd command.Command, err error) error {
	if err == nil {
		return nil
	}

	var cerr *command.Error
	if !errors.As(err, &cerr) {
		cerr = &command.Error{Kind: command.FailBuild, Err: err}
	}
	if cerr.PackageName == "" {
		cerr.PackageName = cmd.PackageName
	}
	if cerr.Event == "" {
		cerr.Event = cmd.Event
	}
	if cmd.Variant() == command.VariantPlugin && postDeployPhase(cmd.Event) {
		cerr.Kind = command.FailPlugin
	}
	return cerr
}

func postDeployPhase(event lifecycle.Event) bool {
	switch event {
	case lifecycle.EventError, lifecycle.EventSuccess, lifecycle.EventEnd:
		return true
	}
	return false
}
