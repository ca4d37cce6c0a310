package hotkey

import "testing"

// steps drive a Tracker through a sequence of events and check the edge
// each one produces.
type step struct {
	mod     int // modifier index, or -1 for the terminal key
	pressed bool
	want    Edge
}

func runSteps(t *testing.T, tr *Tracker, steps []step) {
	t.Helper()
	for i, s := range steps {
		var got Edge
		if s.mod < 0 {
			got = tr.Key(s.pressed)
		} else {
			got = tr.Mod(s.mod, s.pressed)
		}
		if got != s.want {
			t.Fatalf("step %d: got edge %v, want %v", i, got, s.want)
		}
	}
}

func TestChordActivatesOnTerminalKey(t *testing.T) {
	runSteps(t, NewTracker(2), []step{
		{0, true, EdgeNone},
		{1, true, EdgeNone},
		{-1, true, EdgeDown},
		{-1, false, EdgeUp},
	})
}

func TestModifierReleaseEndsChord(t *testing.T) {
	runSteps(t, NewTracker(2), []step{
		{0, true, EdgeNone},
		{1, true, EdgeNone},
		{-1, true, EdgeDown},
		{1, false, EdgeUp},
		// late key release after the chord already ended
		{-1, false, EdgeNone},
	})
}

func TestKeyBeforeModifiersDoesNotFire(t *testing.T) {
	runSteps(t, NewTracker(1), []step{
		{-1, true, EdgeNone},
		{0, true, EdgeNone},
		// key was already down when the modifier arrived
		{-1, false, EdgeNone},
		{0, false, EdgeNone},
	})
}

func TestAutorepeatFiresOnce(t *testing.T) {
	runSteps(t, NewTracker(1), []step{
		{0, true, EdgeNone},
		{-1, true, EdgeDown},
		{-1, true, EdgeNone},
		{-1, true, EdgeNone},
		{-1, false, EdgeUp},
	})
}

func TestRapidRePress(t *testing.T) {
	tr := NewTracker(1)
	runSteps(t, tr, []step{
		{0, true, EdgeNone},
		{-1, true, EdgeDown},
		{-1, false, EdgeUp},
		{-1, true, EdgeDown},
		{-1, false, EdgeUp},
		{0, false, EdgeNone},
	})
}

func TestStrayReleaseWithoutActivation(t *testing.T) {
	runSteps(t, NewTracker(2), []step{
		{0, true, EdgeNone},
		{-1, true, EdgeNone}, // second modifier never held
		{-1, false, EdgeNone},
		{0, false, EdgeNone},
	})
}
