package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ElafAlzoubi/offline-voice-to-text-application/audio"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/beep"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/encoder"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/hotkey"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/log"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/transcriber"
)

// stdoutInjector prints instead of synthesizing keystrokes, so test runs
// can assert on delivered text.
type stdoutInjector struct{}

func (stdoutInjector) Inject(text string) error {
	fmt.Printf("INJECT: %s\n", text)
	return nil
}

// runTestMode replays a WAV file through the full pipeline, driven by
// commands on stdin: KEYDOWN, KEYUP, WAIT, WAIT_AUDIO_DONE, SLEEP <ms>,
// QUIT.
func runTestMode(wavPath string, trans transcriber.Transcriber, maxDur time.Duration, archiveDir string) {
	beep.Disable()

	fakeCtx, err := audio.NewFakeContextFromWAV(wavPath, 10*time.Millisecond)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		os.Exit(1)
	}

	capture, err := fakeCtx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating capture: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()
	fakeCapture := capture.(*audio.FakeCapture)

	dict := NewDictation(capture, trans, stdoutInjector{}, nopSink{}, maxDur)
	if archiveDir != "" {
		dict.OnArchive(func(buf *audio.Buffer) {
			if path, err := encoder.Archive(archiveDir, buf.Samples); err == nil {
				log.Info("archived: " + path)
			}
		})
	}
	activeSession = dict

	hk := hotkey.NewFake()
	recordingDone := make(chan struct{}, 1)

	log.SessionStart("test", "en", capture.DeviceName())

	// Stdin driver in background, sends hotkey events and sync commands
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			cmd := strings.TrimSpace(scanner.Text())
			switch cmd {
			case "KEYDOWN":
				hk.SimKeydown()
			case "KEYUP":
				hk.SimKeyup()
			case "WAIT":
				<-recordingDone
			case "WAIT_AUDIO_DONE":
				<-fakeCapture.AudioDone()
			case "QUIT":
				log.SessionEnd(dict.Count())
				log.Close()
				os.Exit(0)
			default:
				if strings.HasPrefix(cmd, "SLEEP ") {
					if ms, err := strconv.Atoi(cmd[6:]); err == nil {
						time.Sleep(time.Duration(ms) * time.Millisecond)
					}
				}
			}
		}
		os.Exit(0)
	}()

	// Event loop, same pattern as run()
	for {
		<-hk.Keydown()
		done := dict.TryStart(hk.Keyup())
		if done != nil {
			<-done
		}
		select {
		case recordingDone <- struct{}{}:
		default:
		}
	}
}
