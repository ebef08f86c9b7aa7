// Package command holds the data contracts shared by the dispatcher, the
// executors, and the build runner: the three command variants, the result
// produced by running one, and the typed failure error.
package command

import (
	"time"

	"github.com/berthci/berth/internal/deployconfig"
	"github.com/berthci/berth/internal/lifecycle"
	"github.com/berthci/berth/internal/timer"
)

// Origin records where a command or plugin was declared.
type Origin string

const (
	OriginConfig Origin = "config"
	OriginUI     Origin = "ui"
)

// LoadOrigin records how a plugin package was resolved.
type LoadOrigin string

const (
	LoadLocal   LoadOrigin = "local"
	LoadPackage LoadOrigin = "package"
	LoadCore    LoadOrigin = "core"
)

// PackageInfo is the subset of a plugin's package metadata the pipeline
// needs: enough to identify and report on the plugin.
type PackageInfo struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// Variant identifies which of the three command kinds is populated.
type Variant int

const (
	VariantNone Variant = iota
	VariantCore
	VariantBuild
	VariantPlugin
)

// Command is one unit of work in the build sequence. Exactly one variant is
// populated per invocation; that is a caller invariant.
type Command struct {
	Event lifecycle.Event

	// Core command (built-in).
	CoreCommandID   string
	CoreCommandName string

	// Build command (user-declared shell command).
	BuildCommand       string
	BuildCommandOrigin Origin

	// Plugin command (event handler of a loaded plugin package).
	PackageName string
	PackageInfo PackageInfo
	LoadOrigin  LoadOrigin
	Origin      Origin
}

// Variant resolves which kind this command is, in selection precedence
// order: core over build command over plugin.
func (c Command) Variant() Variant {
	switch {
	case c.CoreCommandID != "":
		return VariantCore
	case c.BuildCommand != "":
		return VariantBuild
	case c.PackageName != "":
		return VariantPlugin
	default:
		return VariantNone
	}
}

// Name returns the display name used in logs and reports.
func (c Command) Name() string {
	switch c.Variant() {
	case VariantCore:
		return c.CoreCommandName
	case VariantBuild:
		return c.BuildCommand
	case VariantPlugin:
		return c.PackageName
	default:
		return ""
	}
}

// Status is an optional run-status a command may surface to the deploy UI.
type Status struct {
	State   string `json:"state"`
	Summary string `json:"summary,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Result is produced by running a Command. It is immutable once produced;
// the build runner, not the dispatcher, merges it into pipeline state.
type Result struct {
	// EnvChanges are environment variables to merge forward into later
	// commands.
	EnvChanges map[string]string

	// Err is the command's failure, if any, already classified via Error.
	Err error

	// Status is an optional new run-status.
	Status *Status

	// Mutations are deploy configuration changes the command produced, in
	// the order it produced them.
	Mutations []deployconfig.Mutation

	// Span is the timer-tree fragment for this command.
	Span timer.Span

	// Duration is the measured wall-clock time.
	Duration time.Duration
}
