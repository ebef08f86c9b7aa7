package lifecycle

// FailedSet tracks plugin packages whose hooks are disabled for the rest of
// the build. It grows monotonically; nothing ever removes an entry.
type FailedSet map[string]struct{}

// NewFailedSet returns an empty failed-plugin set.
func NewFailedSet() FailedSet {
	return make(FailedSet)
}

// Add marks packageName as failed.
func (s FailedSet) Add(packageName string) {
	s[packageName] = struct{}{}
}

// Has reports whether packageName has failed.
func (s FailedSet) Has(packageName string) bool {
	_, ok := s[packageName]
	return ok
}

// Eligible reports whether a command owned by packageName may run for event
// given the current build error state.
//
// A plugin that previously failed never runs again in the build, including
// its own onError/onSuccess/onEnd hooks. Once the build has an error only
// always-eligible and failure-only events fire; before that, everything
// except failure-only events fires.
func Eligible(event Event, packageName string, buildHasError bool, failed FailedSet) bool {
	if failed.Has(packageName) {
		return false
	}
	switch event.Category() {
	case CategoryAlways:
		return true
	case CategoryFailureOnly:
		return buildHasError
	default:
		return !buildHasError
	}
}
