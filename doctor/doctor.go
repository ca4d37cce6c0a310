// Package doctor runs interactive end-to-end diagnostics: hotkey, engine
// and model, microphone capture, transcription, and text injection.
package doctor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ElafAlzoubi/offline-voice-to-text-application/audio"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/hotkey"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/inject"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/transcriber"
)

type Config struct {
	Chord       hotkey.Chord
	Transcriber transcriber.Config
	InjectMode  inject.Mode
}

// Run executes interactive diagnostic checks and returns an exit code
// (0 = all pass, 1 = any fail).
func Run(cfg Config) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("v2t doctor - interactive system diagnostics")
	fmt.Println("===========================================")

	allPass := true

	if !checkEngine(cfg.Transcriber) {
		allPass = false
	}
	if allPass && !checkHotkey(cfg.Chord) {
		allPass = false
	}
	if allPass && !checkMicAndTranscription(cfg.Transcriber) {
		allPass = false
	}
	if allPass && !checkInjection(cfg.InjectMode) {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkEngine(cfg transcriber.Config) bool {
	fmt.Println()
	fmt.Println("[1/4] Engine and model files")

	if _, err := os.Stat(cfg.EnginePath); err != nil {
		fmt.Printf("  FAIL: engine binary missing: %s\n", cfg.EnginePath)
		return false
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		fmt.Printf("  FAIL: model file missing: %s\n", cfg.ModelPath)
		return false
	}
	fmt.Println("  PASS: engine and model found")
	return true
}

func checkHotkey(chord hotkey.Chord) bool {
	fmt.Println()
	fmt.Println("[2/4] Hotkey detection")
	fmt.Printf("Press %s...\n", chord)

	hk := hotkey.New(chord)
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		fmt.Println("  PASS: chord detected")
		// Wait for the release so it does not bleed into the next step
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		return false
	}
}

func checkMicAndTranscription(cfg transcriber.Config) bool {
	fmt.Println()
	fmt.Println("[3/4] Microphone and transcription")

	reader := bufio.NewReader(os.Stdin)

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}

	var device *audio.DeviceInfo
	if len(devices) == 1 {
		device = &devices[0]
		fmt.Printf("Using device: %s\n", device.Name)
	} else {
		fmt.Println()
		fmt.Println("Select input device:")
		for i, d := range devices {
			fmt.Printf("  %d. %s\n", i+1, d.Name)
		}
		fmt.Printf("Choice [1-%d]: ", len(devices))

		devChoice, _ := reader.ReadString('\n')
		devChoice = strings.TrimSpace(devChoice)
		idx := 0
		if devChoice != "" {
			fmt.Sscanf(devChoice, "%d", &idx)
			idx--
		}
		if idx < 0 || idx >= len(devices) {
			fmt.Println("  FAIL: invalid choice")
			return false
		}
		device = &devices[idx]
		fmt.Printf("Selected: %s\n", device.Name)
	}

	fmt.Println()
	fmt.Print("Press Enter and speak for 3 seconds...")
	reader.ReadString('\n')

	stop := make(chan struct{})
	go func() {
		time.Sleep(3 * time.Second)
		close(stop)
	}()

	capture, err := ctx.NewCapture(device, audio.CaptureConfig{
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		fmt.Printf("  FAIL: capture init: %v\n", err)
		return false
	}
	defer capture.Close()

	fmt.Print("  Recording")
	dots := make(chan struct{})
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-dots:
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	rec := audio.NewRecorder(10 * time.Second)
	buf, err := rec.Record(capture, stop)
	close(dots)
	fmt.Println(" done")
	if err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return false
	}
	if buf.LowSignal() {
		fmt.Println("  Warning: very low signal level, check the mic volume")
	}
	buf.Normalize()

	fmt.Printf("  Recorded %.1fs, transcribing...\n", buf.Duration().Seconds())

	trans := transcriber.NewWhisper(cfg)
	text, err := trans.Transcribe(context.Background(), buf)
	if err == transcriber.ErrNoSpeech {
		text = "(no speech detected)"
	} else if err != nil {
		fmt.Printf("  FAIL: transcription error: %v\n", err)
		return false
	}

	fmt.Printf("\n  Transcribed text: %s\n\n", text)

	// Fresh reader to clear any buffered input before the confirmation
	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Is this correct? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))

	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: transcription verified by user")
		return true
	}

	fmt.Println("  FAIL: transcription not confirmed")
	return false
}

func checkInjection(mode inject.Mode) bool {
	fmt.Println()
	fmt.Println("[4/4] Text injection")

	inj, err := inject.New(mode)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	if err := inj.Prepare(); err != nil {
		fmt.Printf("  FAIL: injection init: %v\n", err)
		fmt.Println("  Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		return false
	}

	fmt.Println("Focus on a text editor window...")
	for i := 5; i > 0; i-- {
		fmt.Printf("  %d...\n", i)
		time.Sleep(1 * time.Second)
	}

	const testStr = "v2t-doctor-test"
	if err := inj.Inject(testStr); err != nil {
		fmt.Printf("  FAIL: injection failed: %v\n", err)
		return false
	}

	resetTerminal()
	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Println()
	if mode == inject.ModeCopy {
		fmt.Printf("Paste now. Did %q appear? [y/n]: ", testStr)
	} else {
		fmt.Printf("Did the text %q appear? [y/n]: ", testStr)
	}
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))

	if confirm != "y" && confirm != "yes" {
		fmt.Println("  FAIL: injection not confirmed")
		return false
	}
	fmt.Println("  PASS: text injection verified by user")
	return true
}
