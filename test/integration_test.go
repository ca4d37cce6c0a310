//go:build integration

package test_test

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ElafAlzoubi/offline-voice-to-text-application/audio"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("V2T_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "V2T_TEST_BIN not set; build the binary and point V2T_TEST_BIN at it")
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func toneWAV(t *testing.T, dir string, seconds float64) string {
	t.Helper()
	n := int(seconds * audio.SampleRate)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/audio.SampleRate))
	}
	path := filepath.Join(dir, "tone.wav")
	if err := audio.WriteWAV(path, samples); err != nil {
		t.Fatal(err)
	}
	return path
}

func silenceWAV(t *testing.T, dir string, seconds float64) string {
	t.Helper()
	path := filepath.Join(dir, "silence.wav")
	if err := audio.WriteWAV(path, make([]int16, int(seconds*audio.SampleRate))); err != nil {
		t.Fatal(err)
	}
	return path
}

// mockEngine writes a shell script standing in for the whisper.cpp
// binary. body sees $input, the path passed via -f.
func mockEngine(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "engine.sh")
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

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

func runV2T(t *testing.T, stdin, engine, wav string) (logDir, output string) {
	t.Helper()
	logDir = t.TempDir()
	modelDir := t.TempDir()
	model := filepath.Join(modelDir, "ggml-tiny.en.bin")
	if err := os.WriteFile(model, []byte("weights"), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command(testBinary,
		"-logpath", logDir,
		"-engine", engine,
		"-modeldir", modelDir,
		"-test", wav,
	)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = os.Environ()

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("v2t exited with error: %v\noutput: %s", err, out)
	}
	return logDir, string(out)
}

func readDiagnostics(t *testing.T, logDir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, "diagnostics_log.txt"))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatal(err)
	}
	return string(data)
}

func TestDictationInjectsTranscript(t *testing.T) {
	dir := t.TempDir()
	engine := mockEngine(t, dir, `printf 'hello world' > "$input.txt"`)
	wav := toneWAV(t, dir, 0.5)

	logDir, out := runV2T(t, cmds("KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT", "QUIT"), engine, wav)

	if !strings.Contains(out, "INJECT: hello world") {
		t.Errorf("transcript was not delivered, output:\n%s", out)
	}
	diag := readDiagnostics(t, logDir)
	if !strings.Contains(diag, "session_start") {
		t.Error("diagnostics missing session_start")
	}
	if !strings.Contains(diag, "utterance") {
		t.Error("diagnostics missing utterance record")
	}
}

func TestBackToBackUtterances(t *testing.T) {
	dir := t.TempDir()
	engine := mockEngine(t, dir, `printf 'again' > "$input.txt"`)
	wav := toneWAV(t, dir, 0.3)

	_, out := runV2T(t, cmds(
		"KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT",
		"KEYDOWN", "SLEEP 200", "KEYUP", "WAIT",
		"QUIT",
	), engine, wav)

	if got := strings.Count(out, "INJECT: again"); got != 2 {
		t.Errorf("expected 2 injections, got %d, output:\n%s", got, out)
	}
}

func TestSilenceInjectsNothing(t *testing.T) {
	dir := t.TempDir()
	// Engine decodes nothing from silence
	engine := mockEngine(t, dir, `printf '' > "$input.txt"`)
	wav := silenceWAV(t, dir, 0.5)

	logDir, out := runV2T(t, cmds("KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT", "QUIT"), engine, wav)

	if strings.Contains(out, "INJECT:") {
		t.Errorf("nothing should be injected for silence, output:\n%s", out)
	}
	if !strings.Contains(readDiagnostics(t, logDir), "no_speech") {
		t.Error("diagnostics missing no_speech record")
	}
}

func TestEngineFailureLeavesProcessAlive(t *testing.T) {
	dir := t.TempDir()
	engine := mockEngine(t, dir, `echo "model load failed" >&2
exit 1`)
	wav := toneWAV(t, dir, 0.3)

	logDir, out := runV2T(t, cmds(
		"KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT",
		"KEYDOWN", "SLEEP 200", "KEYUP", "WAIT",
		"QUIT",
	), engine, wav)

	if strings.Contains(out, "INJECT:") {
		t.Errorf("failed transcriptions must not inject, output:\n%s", out)
	}
	diag := readDiagnostics(t, logDir)
	if !strings.Contains(diag, "transcription error") {
		t.Error("diagnostics missing transcription error")
	}
	// Both presses produced a full cycle despite the engine failing
	if got := strings.Count(diag, "recording_start"); got != 2 {
		t.Errorf("expected 2 recording_start entries, got %d", got)
	}
}
