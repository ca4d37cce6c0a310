package main

import (
	"errors"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ElafAlzoubi/offline-voice-to-text-application/audio"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/beep"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/transcriber"
)

func TestMain(m *testing.M) {
	beep.Disable()
	os.Exit(m.Run())
}

func sessionTone(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(audio.SampleRate)))
	}
	return out
}

type recordSink struct {
	mu       sync.Mutex
	states   []SessionState
	texts    []string
	noSpeech bool
	errs     []string
	statuses []string
}

func (s *recordSink) StateChange(st SessionState) {
	s.mu.Lock()
	s.states = append(s.states, st)
	s.mu.Unlock()
}
func (s *recordSink) RecordingTick(float64) {}
func (s *recordSink) AudioLevel(float64)    {}
func (s *recordSink) Transcription(text string, noSpeech bool) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.noSpeech = noSpeech
	s.mu.Unlock()
}
func (s *recordSink) Status(text string) {
	s.mu.Lock()
	s.statuses = append(s.statuses, text)
	s.mu.Unlock()
}
func (s *recordSink) Error(text string) {
	s.mu.Lock()
	s.errs = append(s.errs, text)
	s.mu.Unlock()
}

func (s *recordSink) stateSeq() []SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SessionState(nil), s.states...)
}

type fakeInjector struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeInjector) Inject(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeInjector) injected() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func fakeCaptureDevice(t *testing.T, pcm []int16) *audio.FakeCapture {
	t.Helper()
	ctx := audio.NewFakeContext(pcm, 0)
	dev, err := ctx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		t.Fatal(err)
	}
	return dev.(*audio.FakeCapture)
}

// runUtterance drives one full press-release cycle: start, wait until the
// canned audio is fed, release, wait for the session to resolve.
func runUtterance(t *testing.T, d *Dictation, capture *audio.FakeCapture) {
	t.Helper()
	stop := make(chan struct{})
	done := d.TryStart(stop)
	if done == nil {
		t.Fatal("TryStart refused while idle")
	}
	<-capture.AudioDone()
	close(stop)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not resolve")
	}
}

func TestDictationEndToEnd(t *testing.T) {
	capture := fakeCaptureDevice(t, sessionTone(audio.SampleRate/2))
	trans := transcriber.NewFake("test transcription", nil)
	inj := &fakeInjector{}
	sink := &recordSink{}
	d := NewDictation(capture, trans, inj, sink, 0)

	runUtterance(t, d, capture)

	if got := inj.injected(); len(got) != 1 || got[0] != "test transcription" {
		t.Errorf("injected %q, want exactly [test transcription]", got)
	}
	want := []SessionState{StateRecording, StateTranscribing, StateInjecting, StateIdle}
	if got := sink.stateSeq(); len(got) != len(want) {
		t.Fatalf("state sequence %v, want %v", got, want)
	} else {
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("state sequence %v, want %v", got, want)
			}
		}
	}
	if d.Count() != 1 {
		t.Errorf("Count() = %d, want 1", d.Count())
	}
	if d.State() != StateIdle {
		t.Errorf("final state %v, want idle", d.State())
	}
}

func TestTryStartWhileActiveIsDropped(t *testing.T) {
	capture := fakeCaptureDevice(t, sessionTone(audio.SampleRate/2))
	trans := transcriber.NewFake("once", nil)
	d := NewDictation(capture, trans, &fakeInjector{}, nil, 0)

	stop := make(chan struct{})
	done := d.TryStart(stop)
	if done == nil {
		t.Fatal("TryStart refused while idle")
	}
	if second := d.TryStart(make(chan struct{})); second != nil {
		t.Error("second TryStart should be dropped while a session is active")
	}

	<-capture.AudioDone()
	close(stop)
	<-done

	if trans.Calls() != 1 {
		t.Errorf("transcriber called %d times, want 1", trans.Calls())
	}
}

func TestNoAudioShortCircuits(t *testing.T) {
	capture := fakeCaptureDevice(t, nil)
	trans := transcriber.NewFake("never", nil)
	inj := &fakeInjector{}
	d := NewDictation(capture, trans, inj, nil, 0)

	runUtterance(t, d, capture)

	if trans.Calls() != 0 {
		t.Error("transcriber must not run on an empty capture")
	}
	if len(inj.injected()) != 0 {
		t.Error("nothing should be injected on an empty capture")
	}
	if d.State() != StateIdle {
		t.Errorf("final state %v, want idle", d.State())
	}
}

func TestNoSpeechIsQuietNoop(t *testing.T) {
	capture := fakeCaptureDevice(t, sessionTone(audio.SampleRate/2))
	trans := transcriber.NewFake("", nil) // empty transcript
	inj := &fakeInjector{}
	sink := &recordSink{}
	d := NewDictation(capture, trans, inj, sink, 0)

	runUtterance(t, d, capture)

	if !sink.noSpeech {
		t.Error("sink should be told no speech was detected")
	}
	if len(inj.injected()) != 0 {
		t.Error("nothing should be injected when no speech was detected")
	}
	if len(sink.errs) != 0 {
		t.Errorf("no speech is not an error, got %v", sink.errs)
	}
	if d.Count() != 0 {
		t.Errorf("Count() = %d, want 0", d.Count())
	}
}

func TestTranscribeErrorResolvesToIdle(t *testing.T) {
	capture := fakeCaptureDevice(t, sessionTone(audio.SampleRate/2))
	trans := transcriber.NewFake("", errors.New("engine exploded"))
	inj := &fakeInjector{}
	sink := &recordSink{}
	d := NewDictation(capture, trans, inj, sink, 0)

	runUtterance(t, d, capture)

	if len(inj.injected()) != 0 {
		t.Error("injector must not run after a transcription failure")
	}
	if len(sink.errs) == 0 {
		t.Error("failure should be surfaced through the sink")
	}
	if d.State() != StateIdle {
		t.Errorf("final state %v, want idle", d.State())
	}
}

func TestInjectErrorResolvesToIdle(t *testing.T) {
	capture := fakeCaptureDevice(t, sessionTone(audio.SampleRate/2))
	trans := transcriber.NewFake("hello", nil)
	inj := &fakeInjector{err: errors.New("uinput denied")}
	sink := &recordSink{}
	d := NewDictation(capture, trans, inj, sink, 0)

	runUtterance(t, d, capture)

	if len(sink.errs) == 0 {
		t.Error("inject failure should be surfaced through the sink")
	}
	if d.State() != StateIdle {
		t.Errorf("final state %v, want idle", d.State())
	}
	if d.Count() != 0 {
		t.Errorf("Count() = %d, want 0", d.Count())
	}

	// A fresh utterance must still work after the failure.
	inj.err = nil
	runUtterance(t, d, capture)
	if got := inj.injected(); len(got) != 1 || got[0] != "hello" {
		t.Errorf("recovery utterance injected %q", got)
	}
}

func TestArchiveHookReceivesBuffer(t *testing.T) {
	capture := fakeCaptureDevice(t, sessionTone(audio.SampleRate/2))
	trans := transcriber.NewFake("archived", nil)
	d := NewDictation(capture, trans, &fakeInjector{}, nil, 0)

	var mu sync.Mutex
	var archived *audio.Buffer
	d.OnArchive(func(buf *audio.Buffer) {
		mu.Lock()
		archived = buf
		mu.Unlock()
	})

	runUtterance(t, d, capture)

	mu.Lock()
	defer mu.Unlock()
	if archived == nil || len(archived.Samples) == 0 {
		t.Fatal("archive hook did not receive the recorded buffer")
	}
}
