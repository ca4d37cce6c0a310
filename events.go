package main

// EventSink abstracts the display layer so the Bubble Tea TUI and the
// headless modes can receive the same dictation events.
type EventSink interface {
	StateChange(s SessionState)
	RecordingTick(seconds float64)
	AudioLevel(rms float64)
	Transcription(text string, noSpeech bool)
	Status(text string)
	Error(text string)
}

type nopSink struct{}

func (nopSink) StateChange(SessionState)   {}
func (nopSink) RecordingTick(float64)      {}
func (nopSink) AudioLevel(float64)         {}
func (nopSink) Transcription(string, bool) {}
func (nopSink) Status(string)              {}
func (nopSink) Error(string)               {}
