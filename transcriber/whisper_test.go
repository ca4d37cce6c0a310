package transcriber

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ElafAlzoubi/offline-voice-to-text-application/audio"
)

// mockEngine writes a shell script standing in for the whisper.cpp binary.
// The script finds the -f argument the same way the real engine does.
func mockEngine(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("mock engine scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "engine.sh")
	script := `#!/bin/sh
input=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-f" ]; then input="$2"; shift; fi
  shift
done
` + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func testBuffer() *audio.Buffer {
	return &audio.Buffer{Samples: make([]int16, audio.SampleRate/10)}
}

func transcribe(t *testing.T, engine string, timeout time.Duration) (string, error) {
	t.Helper()
	w := NewWhisper(Config{
		EnginePath: engine,
		ModelPath:  "ggml-tiny.en.bin",
		Timeout:    timeout,
	})
	return w.Transcribe(context.Background(), testBuffer())
}

func TestArtifactDecidesSuccess(t *testing.T) {
	// Engine exits non-zero but still writes a transcript: success.
	engine := mockEngine(t, `printf '  hello\nworld  ' > "$input.txt"
exit 3`)
	text, err := transcribe(t, engine, time.Second)
	if err != nil {
		t.Fatalf("expected success despite non-zero exit, got %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
}

func TestExitZeroWithoutArtifactFails(t *testing.T) {
	engine := mockEngine(t, `echo "error: failed to load model" >&2
exit 0`)
	_, err := transcribe(t, engine, time.Second)
	var inv *InvocationError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvocationError, got %v", err)
	}
	if len(inv.Stderr) == 0 || !strings.Contains(inv.Stderr[0], "failed to load model") {
		t.Errorf("stderr diagnostics not captured: %v", inv.Stderr)
	}
}

func TestStderrTruncatedToFirstLines(t *testing.T) {
	engine := mockEngine(t, `for i in 1 2 3 4 5 6; do echo "line $i" >&2; done
exit 1`)
	_, err := transcribe(t, engine, time.Second)
	var inv *InvocationError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvocationError, got %v", err)
	}
	if len(inv.Stderr) != stderrLines {
		t.Errorf("captured %d stderr lines, want %d", len(inv.Stderr), stderrLines)
	}
}

func TestEmptyTranscriptIsNoSpeech(t *testing.T) {
	engine := mockEngine(t, `printf '  \n \n ' > "$input.txt"`)
	_, err := transcribe(t, engine, time.Second)
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("expected ErrNoSpeech, got %v", err)
	}
}

func TestTimeout(t *testing.T) {
	engine := mockEngine(t, `sleep 10`)
	start := time.Now()
	_, err := transcribe(t, engine, 100*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout was not enforced promptly")
	}
}

func TestMissingEngineBinary(t *testing.T) {
	w := NewWhisper(Config{
		EnginePath: filepath.Join(t.TempDir(), "does-not-exist"),
		ModelPath:  "ggml-tiny.en.bin",
	})
	_, err := w.Transcribe(context.Background(), testBuffer())
	var inv *InvocationError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvocationError, got %v", err)
	}
}

func TestArtifactsRemoved(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TMPDIR", tmpDir)

	engine := mockEngine(t, `printf 'test transcription' > "$input.txt"`)
	if _, err := transcribe(t, engine, time.Second); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "v2t-") {
			t.Errorf("leftover artifact: %s", e.Name())
		}
	}
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello\nworld  ", "hello world"},
		{"one  two\t\tthree", "one two three"},
		{"\n\n", ""},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := CollapseWhitespace(tt.in); got != tt.want {
			t.Errorf("CollapseWhitespace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
