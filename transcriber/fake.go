package transcriber

import (
	"context"
	"sync/atomic"

	"github.com/ElafAlzoubi/offline-voice-to-text-application/audio"
)

// Fake returns canned results and counts invocations.
type Fake struct {
	Text string
	Err  error

	calls atomic.Int32
}

func NewFake(text string, err error) *Fake {
	return &Fake{Text: text, Err: err}
}

func (f *Fake) Transcribe(_ context.Context, _ *audio.Buffer) (string, error) {
	f.calls.Add(1)
	if f.Err != nil {
		return "", f.Err
	}
	if f.Text == "" {
		return "", ErrNoSpeech
	}
	return f.Text, nil
}

func (f *Fake) Calls() int { return int(f.calls.Load()) }
