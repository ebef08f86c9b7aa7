package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryPartition(t *testing.T) {
	t.Parallel()

	want := map[Event]Category{
		EventPreBuild:  CategorySuccessOnly,
		EventBuild:     CategorySuccessOnly,
		EventPostBuild: CategorySuccessOnly,
		EventError:     CategoryFailureOnly,
		EventSuccess:   CategorySuccessOnly,
		EventEnd:       CategoryAlways,
	}

	require.ElementsMatch(t, Ordered(), keys(want))
	for ev, cat := range want {
		assert.Equal(t, cat, ev.Category(), "event %s", ev)
		assert.True(t, ev.Known(), "event %s", ev)
	}

	// Unknown events fall back to the conservative category.
	assert.Equal(t, CategorySuccessOnly, Event("onWarp").Category())
	assert.False(t, Event("onWarp").Known())
}

func keys(m map[Event]Category) []Event {
	out := make([]Event, 0, len(m))
	for ev := range m {
		out = append(out, ev)
	}
	return out
}

// TestEligibleCrossProduct exercises every combination of event category,
// build error state, and plugin failed state.
func TestEligibleCrossProduct(t *testing.T) {
	t.Parallel()

	for _, ev := range Ordered() {
		for _, hasError := range []bool{false, true} {
			for _, pluginFailed := range []bool{false, true} {
				failed := NewFailedSet()
				if pluginFailed {
					failed.Add("plugin-a")
				}

				got := Eligible(ev, "plugin-a", hasError, failed)

				var want bool
				switch {
				case pluginFailed:
					want = false
				case ev.Category() == CategoryAlways:
					want = true
				case ev.Category() == CategoryFailureOnly:
					want = hasError
				default:
					want = !hasError
				}

				assert.Equalf(t, want, got,
					"event=%s hasError=%v pluginFailed=%v", ev, hasError, pluginFailed)
			}
		}
	}
}

func TestEligibleOtherPluginUnaffected(t *testing.T) {
	t.Parallel()

	failed := NewFailedSet()
	failed.Add("plugin-a")

	// plugin-b is unaffected by plugin-a's failure.
	assert.True(t, Eligible(EventPreBuild, "plugin-b", false, failed))
	assert.True(t, Eligible(EventEnd, "plugin-b", true, failed))
	assert.False(t, Eligible(EventEnd, "plugin-a", true, failed))
}

func TestFailedSetMonotonic(t *testing.T) {
	t.Parallel()

	s := NewFailedSet()
	assert.False(t, s.Has("p"))
	s.Add("p")
	s.Add("p")
	assert.True(t, s.Has("p"))
	assert.Len(t, s, 1)
}
