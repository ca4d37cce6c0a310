//go:build !linux

package inject

import (
	"runtime"
	"sync"

	cb "github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

func prepare() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
	})
	return kbErr
}

// typeString places text on the clipboard and replays the platform paste
// chord. Per-character synthesis is unreliable outside of uinput, so the
// clipboard round trip is the delivery path here.
func typeString(text string) error {
	if err := prepare(); err != nil {
		return err
	}
	if err := cb.WriteAll(text); err != nil {
		return err
	}
	kb.Clear()
	kb.SetKeys(keybd_event.VK_V)
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true) // Cmd+V
	} else {
		kb.HasCTRL(true)
	}
	return kb.Launching()
}
