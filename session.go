package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ElafAlzoubi/offline-voice-to-text-application/audio"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/beep"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/log"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/transcriber"
)

type SessionState int32

const (
	StateIdle SessionState = iota
	StateRecording
	StateTranscribing
	StateInjecting
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateInjecting:
		return "injecting"
	}
	return "unknown"
}

const tickInterval = 100 * time.Millisecond

type textInjector interface {
	Inject(text string) error
}

// Dictation runs one press-and-hold utterance at a time: record while
// the chord is held, then transcribe, then inject. The state always
// returns to idle no matter which stage fails.
type Dictation struct {
	state   atomic.Int32
	count   atomic.Int32
	capture audio.CaptureDevice
	trans   transcriber.Transcriber
	inject  textInjector
	sink    EventSink
	archive func(*audio.Buffer)
	maxDur  time.Duration
}

func NewDictation(capture audio.CaptureDevice, trans transcriber.Transcriber, inject textInjector, sink EventSink, maxDur time.Duration) *Dictation {
	if sink == nil {
		sink = nopSink{}
	}
	if maxDur <= 0 {
		maxDur = audio.DefaultMaxDuration
	}
	return &Dictation{
		capture: capture,
		trans:   trans,
		inject:  inject,
		sink:    sink,
		maxDur:  maxDur,
	}
}

// OnArchive installs a hook that receives the normalized buffer of every
// recorded utterance.
func (d *Dictation) OnArchive(fn func(*audio.Buffer)) {
	d.archive = fn
}

func (d *Dictation) State() SessionState {
	return SessionState(d.state.Load())
}

// Count reports how many utterances produced text so far.
func (d *Dictation) Count() int {
	return int(d.count.Load())
}

// TryStart begins a session unless one is already running, in which case
// it returns nil and the trigger is dropped. The returned channel closes
// once the session has fully resolved back to idle.
func (d *Dictation) TryStart(stop <-chan struct{}) <-chan struct{} {
	if !d.state.CompareAndSwap(int32(StateIdle), int32(StateRecording)) {
		return nil
	}
	d.sink.StateChange(StateRecording)
	done := make(chan struct{})
	go d.run(stop, done)
	return done
}

func (d *Dictation) setState(s SessionState) {
	d.state.Store(int32(s))
	d.sink.StateChange(s)
}

func (d *Dictation) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Error(msg)
	d.sink.Error(msg)
	go beep.PlayError()
}

func (d *Dictation) run(stop <-chan struct{}, done chan struct{}) {
	defer close(done)
	defer d.setState(StateIdle)

	go beep.PlayStart()
	log.Info("recording_start")

	rec := audio.NewRecorder(d.maxDur)
	rec.OnLevel(d.sink.AudioLevel)

	recDone := make(chan struct{})
	go func() {
		start := time.Now()
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-recDone:
				return
			case <-ticker.C:
				d.sink.RecordingTick(time.Since(start).Seconds())
			}
		}
	}()

	buf, err := rec.Record(d.capture, stop)
	close(recDone)
	go beep.PlayEnd()

	if errors.Is(err, audio.ErrNoAudio) {
		log.Warn("no audio captured")
		d.sink.Status("no audio captured")
		return
	}
	if err != nil {
		d.fail("recording error: %v", err)
		return
	}
	if buf.Truncated {
		log.Warnf("recording truncated at %s ceiling", d.maxDur)
		d.sink.Status(fmt.Sprintf("recording truncated at %s", d.maxDur))
	}
	if buf.LowSignal() {
		log.Warn("low signal level, check microphone")
		d.sink.Status("low signal level, check microphone")
	}
	buf.Normalize()

	if d.archive != nil {
		d.archive(buf)
	}

	d.setState(StateTranscribing)
	log.Infof("transcribing %.1fs of audio", buf.Duration().Seconds())
	start := time.Now()

	text, err := d.trans.Transcribe(context.Background(), buf)
	if errors.Is(err, transcriber.ErrNoSpeech) {
		log.Info("no_speech")
		d.sink.Transcription("", true)
		return
	}
	if err != nil {
		d.fail("transcription error: %v", err)
		return
	}

	d.setState(StateInjecting)
	d.sink.Transcription(text, false)
	if err := d.inject.Inject(text); err != nil {
		d.fail("inject error: %v", err)
		return
	}

	d.count.Add(1)
	log.UtteranceDone(buf.Duration().Seconds(), float64(time.Since(start).Milliseconds()), len(text))
}
