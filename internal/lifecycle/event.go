// Package lifecycle defines the build lifecycle events, their fixed
// eligibility categories, and the failure-domain classifier that decides
// which commands may still run once a build has failed.
package lifecycle

// Event names a phase in the build lifecycle.
type Event string

const (
	EventPreBuild  Event = "onPreBuild"
	EventBuild     Event = "onBuild"
	EventPostBuild Event = "onPostBuild"
	EventError     Event = "onError"
	EventSuccess   Event = "onSuccess"
	EventEnd       Event = "onEnd"
)

// Category partitions events by when they are allowed to fire relative to
// the build error state. The partition is fixed and process-wide.
type Category int

const (
	// CategorySuccessOnly events fire only while the build has no error.
	CategorySuccessOnly Category = iota
	// CategoryFailureOnly events fire only after the build has failed.
	CategoryFailureOnly
	// CategoryAlways events fire regardless of error state.
	CategoryAlways
)

var categories = map[Event]Category{
	EventPreBuild:  CategorySuccessOnly,
	EventBuild:     CategorySuccessOnly,
	EventPostBuild: CategorySuccessOnly,
	EventError:     CategoryFailureOnly,
	EventSuccess:   CategorySuccessOnly,
	EventEnd:       CategoryAlways,
}

// Category returns the eligibility category for the event. Unknown events
// are treated as success-only, the conservative default.
func (e Event) Category() Category {
	if c, ok := categories[e]; ok {
		return c
	}
	return CategorySuccessOnly
}

// Known reports whether e is one of the defined lifecycle events.
func (e Event) Known() bool {
	_, ok := categories[e]
	return ok
}

// Ordered returns all lifecycle events in execution order.
func Ordered() []Event {
	return []Event{
		EventPreBuild,
		EventBuild,
		EventPostBuild,
		EventError,
		EventSuccess,
		EventEnd,
	}
}
