//go:build !linux

package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

// xHotkey registers the chord with the windowing system via
// golang.design/x/hotkey, which handles chord tracking itself.
type xHotkey struct {
	chord   Chord
	hk      *hotkey.Hotkey
	keydown chan struct{}
	keyup   chan struct{}
	stop    chan struct{}
	once    sync.Once
}

func New(chord Chord) Hotkey {
	return &xHotkey{
		chord:   chord,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

func (h *xHotkey) Register() error {
	mods, err := systemMods(h.chord.Mods)
	if err != nil {
		return err
	}
	key, err := systemKey(h.chord.Key)
	if err != nil {
		return err
	}
	h.hk = hotkey.New(mods, key)
	if err := h.hk.Register(); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-h.stop:
				return
			case <-h.hk.Keydown():
				select {
				case h.keydown <- struct{}{}:
				default:
				}
			}
		}
	}()
	go func() {
		for {
			select {
			case <-h.stop:
				return
			case <-h.hk.Keyup():
				select {
				case h.keyup <- struct{}{}:
				default:
				}
			}
		}
	}()
	return nil
}

func (h *xHotkey) Unregister() {
	h.once.Do(func() {
		close(h.stop)
		if h.hk != nil {
			h.hk.Unregister()
		}
	})
}

func (h *xHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *xHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

func systemMods(mods []Mod) ([]hotkey.Modifier, error) {
	out := make([]hotkey.Modifier, 0, len(mods))
	for _, m := range mods {
		switch m {
		case ModCtrl:
			out = append(out, hotkey.ModCtrl)
		case ModShift:
			out = append(out, hotkey.ModShift)
		default:
			return nil, fmt.Errorf("modifier %q is not supported on this platform (use ctrl or shift)", m)
		}
	}
	return out, nil
}

func systemKey(key string) (hotkey.Key, error) {
	if key == "space" {
		return hotkey.KeySpace, nil
	}
	letters := [26]hotkey.Key{
		hotkey.KeyA, hotkey.KeyB, hotkey.KeyC, hotkey.KeyD, hotkey.KeyE,
		hotkey.KeyF, hotkey.KeyG, hotkey.KeyH, hotkey.KeyI, hotkey.KeyJ,
		hotkey.KeyK, hotkey.KeyL, hotkey.KeyM, hotkey.KeyN, hotkey.KeyO,
		hotkey.KeyP, hotkey.KeyQ, hotkey.KeyR, hotkey.KeyS, hotkey.KeyT,
		hotkey.KeyU, hotkey.KeyV, hotkey.KeyW, hotkey.KeyX, hotkey.KeyY,
		hotkey.KeyZ,
	}
	if len(key) == 1 && key[0] >= 'a' && key[0] <= 'z' {
		return letters[key[0]-'a'], nil
	}
	return 0, fmt.Errorf("unsupported chord key %q", key)
}

func Diagnose() (string, error) {
	return "system hotkey support available", nil
}
