//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
)

const inputEventSize = 24

// evdev scan codes, left and right variant per modifier
var modCodes = map[Mod][2]uint16{
	ModCtrl:  {29, 97},
	ModShift: {42, 54},
	ModAlt:   {56, 100},
	ModSuper: {125, 126},
}

// a=30 ... z=44, same order as the alphabet
var letterCodes = [26]uint16{
	30, 48, 46, 32, 18, 33, 34, 35, 23, 36,
	37, 38, 50, 49, 24, 25, 16, 19, 31, 20,
	22, 47, 17, 45, 21, 44,
}

func terminalCode(key string) uint16 {
	if key == "space" {
		return 57
	}
	return letterCodes[key[0]-'a']
}

// linuxHotkey reads raw key events from every keyboard device and feeds
// them through a shared chord tracker, so a chord split across two
// physical keyboards still resolves correctly.
type linuxHotkey struct {
	keydown chan struct{}
	keyup   chan struct{}
	files   []*os.File
	stop    chan struct{}
	once    sync.Once

	mu       sync.Mutex
	tracker  *Tracker
	modIndex map[uint16]int
	keyCode  uint16
}

func New(chord Chord) Hotkey {
	h := &linuxHotkey{
		keydown:  make(chan struct{}, 1),
		keyup:    make(chan struct{}, 1),
		tracker:  NewTracker(len(chord.Mods)),
		modIndex: make(map[uint16]int),
		keyCode:  terminalCode(chord.Key),
	}
	for i, m := range chord.Mods {
		codes := modCodes[m]
		h.modIndex[codes[0]] = i
		h.modIndex[codes[1]] = i
	}
	return h
}

func (h *linuxHotkey) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	h.stop = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.readEvents(f)
	}

	if len(h.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}

	return nil
}

func (h *linuxHotkey) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)

	for {
		select {
		case <-h.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			if evType != evKey {
				continue
			}
			// value 2 is autorepeat; the tracker only cares about
			// press and release transitions
			if evValue != keyPress && evValue != keyRelease {
				continue
			}
			h.handleKey(evCode, evValue == keyPress)
		}
	}
}

func (h *linuxHotkey) handleKey(code uint16, pressed bool) {
	h.mu.Lock()
	var edge Edge
	if idx, ok := h.modIndex[code]; ok {
		edge = h.tracker.Mod(idx, pressed)
	} else if code == h.keyCode {
		edge = h.tracker.Key(pressed)
	}
	h.mu.Unlock()

	switch edge {
	case EdgeDown:
		select {
		case h.keydown <- struct{}{}:
		default:
		}
	case EdgeUp:
		select {
		case h.keyup <- struct{}{}:
		default:
		}
	}
}

func (h *linuxHotkey) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *linuxHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *linuxHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}

func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}

	return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), opened), nil
}
