// Package hotkey watches keyboard input for the push-to-talk chord.
package hotkey

import (
	"fmt"
	"strings"
)

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Mod is a chord modifier.
type Mod string

const (
	ModCtrl  Mod = "ctrl"
	ModShift Mod = "shift"
	ModAlt   Mod = "alt"
	ModSuper Mod = "super"
)

// Chord is a parsed hotkey combination: one or more modifiers plus a
// terminal key.
type Chord struct {
	Mods []Mod
	Key  string // "space" or a single lowercase letter
}

func (c Chord) String() string {
	parts := make([]string, 0, len(c.Mods)+1)
	for _, m := range c.Mods {
		parts = append(parts, string(m))
	}
	parts = append(parts, c.Key)
	return strings.Join(parts, "+")
}

// ParseChord parses a "+"-separated chord like "ctrl+shift+space". At
// least one modifier is required so ordinary typing can never trigger
// dictation.
func ParseChord(s string) (Chord, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) < 2 {
		return Chord{}, fmt.Errorf("chord %q needs at least one modifier and a key", s)
	}

	var c Chord
	seen := map[Mod]bool{}
	for _, p := range parts[:len(parts)-1] {
		m, err := parseMod(p)
		if err != nil {
			return Chord{}, err
		}
		if seen[m] {
			return Chord{}, fmt.Errorf("duplicate modifier %q in chord %q", m, s)
		}
		seen[m] = true
		c.Mods = append(c.Mods, m)
	}

	key := parts[len(parts)-1]
	switch {
	case key == "space":
	case len(key) == 1 && key[0] >= 'a' && key[0] <= 'z':
	default:
		return Chord{}, fmt.Errorf("unsupported chord key %q (use space or a letter)", key)
	}
	c.Key = key
	return c, nil
}

func parseMod(s string) (Mod, error) {
	switch s {
	case "ctrl", "control":
		return ModCtrl, nil
	case "shift":
		return ModShift, nil
	case "alt", "option":
		return ModAlt, nil
	case "super", "win", "cmd", "meta":
		return ModSuper, nil
	}
	return "", fmt.Errorf("unknown modifier %q", s)
}
