package hotkey

// Edge is a chord state transition reported by the Tracker.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeDown      // chord just became active
	EdgeUp        // chord just became inactive
)

// Tracker holds the press state of a chord's keys and decides when the
// chord as a whole activates and deactivates. The chord activates when
// the terminal key goes down while every modifier is held, and
// deactivates as soon as the terminal key or any modifier is released.
// A chord that never activated produces no edges, so releasing keys in
// an odd order cannot emit a stray EdgeUp.
type Tracker struct {
	mods    []bool
	keyHeld bool
	active  bool
}

// NewTracker tracks a chord with n modifiers.
func NewTracker(n int) *Tracker {
	return &Tracker{mods: make([]bool, n)}
}

// Mod records a press state change for modifier i.
func (t *Tracker) Mod(i int, pressed bool) Edge {
	t.mods[i] = pressed
	if t.active && !pressed {
		t.active = false
		return EdgeUp
	}
	return EdgeNone
}

// Key records a press state change for the terminal key. Repeated down
// events while the key is already held (keyboard autorepeat) are
// ignored, so a held chord fires exactly once.
func (t *Tracker) Key(pressed bool) Edge {
	if pressed {
		if t.keyHeld {
			return EdgeNone
		}
		t.keyHeld = true
		if !t.active && t.allModsHeld() {
			t.active = true
			return EdgeDown
		}
		return EdgeNone
	}
	t.keyHeld = false
	if t.active {
		t.active = false
		return EdgeUp
	}
	return EdgeNone
}

func (t *Tracker) allModsHeld() bool {
	for _, held := range t.mods {
		if !held {
			return false
		}
	}
	return true
}
