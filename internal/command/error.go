package command

import (
	"errors"
	"fmt"

	"github.com/berthci/berth/internal/lifecycle"
)

// FailureKind classifies what a command failure does to the rest of the
// build.
type FailureKind int

const (
	// FailBuild sets the build error flag: only failure-only and
	// always-eligible events run afterwards.
	FailBuild FailureKind = iota
	// FailPlugin disables the owning plugin's remaining hooks but leaves
	// the build error flag alone.
	FailPlugin
)

func (k FailureKind) String() string {
	if k == FailPlugin {
		return "plugin"
	}
	return "build"
}

// Error is a command failure annotated with its failure domain and the
// identity of the command that produced it.
type Error struct {
	Kind        FailureKind
	PackageName string
	Event       lifecycle.Event
	Err         error
}

func (e *Error) Error() string {
	if e.PackageName != "" {
		return fmt.Sprintf("%s failure in %q during %s: %v", e.Kind, e.PackageName, e.Event, e.Err)
	}
	return fmt.Sprintf("%s failure during %s: %v", e.Kind, e.Event, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewBuildFailure wraps err as a build failure.
func NewBuildFailure(event lifecycle.Event, packageName string, err error) *Error {
	return &Error{Kind: FailBuild, PackageName: packageName, Event: event, Err: err}
}

// NewPluginFailure wraps err as a plugin-local failure.
func NewPluginFailure(event lifecycle.Event, packageName string, err error) *Error {
	return &Error{Kind: FailPlugin, PackageName: packageName, Event: event, Err: err}
}

// KindOf extracts the failure kind from err. Unclassified errors default to
// build failures.
func KindOf(err error) FailureKind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return FailBuild
}
