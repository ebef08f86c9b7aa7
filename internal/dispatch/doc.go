// Package dispatch decides which build commands run, invokes the matching
// executor with timing instrumentation, and packages each outcome into a
// pipeline-facing result. It never lets a command failure escape as an
// error; only programmer-error inputs do that.
package dispatch
