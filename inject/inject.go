// Package inject delivers recognized text to the focused application.
package inject

import (
	"fmt"
	"time"

	cb "github.com/atotto/clipboard"
)

// Mode selects the delivery mechanism.
type Mode string

const (
	ModeType Mode = "type" // synthetic keystrokes at the cursor
	ModeCopy Mode = "copy" // clipboard only, user pastes manually
)

// settleDelay gives the compositor time to hand focus back to the target
// window after the hotkey chord is released. Without it the first
// keystrokes can land in the wrong window.
const settleDelay = 50 * time.Millisecond

type Injector struct {
	mode Mode
}

func New(mode Mode) (*Injector, error) {
	switch mode {
	case ModeType, ModeCopy:
	default:
		return nil, fmt.Errorf("unknown inject mode %q (use type or copy)", mode)
	}
	return &Injector{mode: mode}, nil
}

// Prepare opens the platform keystroke device early so permission problems
// surface at startup instead of mid-dictation.
func (i *Injector) Prepare() error {
	if i.mode == ModeCopy {
		return nil
	}
	return prepare()
}

// Inject delivers text to the active application. Empty text is a no-op.
// The whole string goes out as one burst with no inter-character delay;
// failures are reported, never retried.
func (i *Injector) Inject(text string) error {
	if text == "" {
		return nil
	}
	time.Sleep(settleDelay)
	if i.mode == ModeCopy {
		return cb.WriteAll(text)
	}
	return typeString(text)
}
