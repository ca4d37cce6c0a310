// Package transcriber converts captured utterances to text by invoking an
// external whisper.cpp process.
package transcriber

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ElafAlzoubi/offline-voice-to-text-application/audio"
)

// Transcriber converts one utterance to text. Implementations own any
// intermediate artifacts they create and must remove them on all paths.
type Transcriber interface {
	Transcribe(ctx context.Context, buf *audio.Buffer) (string, error)
}

// ErrNoSpeech means the engine ran to completion but decoded nothing.
// Callers treat this as a quiet no-op, not a failure.
var ErrNoSpeech = errors.New("no speech detected")

// ErrTimeout means the engine exceeded its wall-clock budget and was killed.
var ErrTimeout = errors.New("transcription timed out")

// InvocationError means the engine could not start, or exited without
// producing a transcript artifact.
type InvocationError struct {
	Stderr []string // first few lines of the engine's diagnostic stream
	Err    error
}

func (e *InvocationError) Error() string {
	msg := "no transcript produced"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if len(e.Stderr) > 0 {
		return fmt.Sprintf("engine invocation failed: %s: %s", msg, strings.Join(e.Stderr, " | "))
	}
	return fmt.Sprintf("engine invocation failed: %s", msg)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// ArtifactError means the engine produced a transcript artifact that could
// not be read back.
type ArtifactError struct {
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("reading transcript %s: %v", e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// CollapseWhitespace folds runs of whitespace, including newlines the
// engine emits between segments, into single spaces and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func headLines(s string, n int) []string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
