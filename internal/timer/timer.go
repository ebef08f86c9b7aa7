// Package timer records named wall-clock spans around command execution.
// Spans form a flat fragment of the build's timer tree: each span carries an
// optional parent tag so callers can reassemble nesting.
package timer

import "time"

// Span is one measured stage of the build.
type Span struct {
	// Parent is the tag of the enclosing stage, empty for top-level spans.
	Parent string
	// Name identifies the stage within its parent.
	Name string
	// Duration is the measured wall-clock time.
	Duration time.Duration
}

// Measure runs fn and returns a span for it. The duration is recorded even
// when fn fails; the error is returned unchanged.
func Measure(parent, name string, fn func() error) (Span, error) {
	start := time.Now()
	err := fn()
	return Span{
		Parent:   parent,
		Name:     name,
		Duration: time.Since(start),
	}, err
}
