package transcriber

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/ElafAlzoubi/offline-voice-to-text-application/audio"
)

const (
	// DefaultTimeout bounds one engine invocation. The tiny models decode
	// a 30 s utterance in a few seconds; anything near a minute means the
	// machine is thrashing.
	DefaultTimeout = 60 * time.Second

	DefaultThreads  = 4
	DefaultBeamSize = 1 // greedy decoding, fastest
	DefaultLanguage = "en"

	stderrLines = 3
)

type Config struct {
	EnginePath string
	ModelPath  string
	Threads    int
	BeamSize   int
	Language   string
	Timeout    time.Duration
}

// Whisper invokes the whisper.cpp command-line binary on a temp WAV file.
type Whisper struct {
	cfg Config
}

func NewWhisper(cfg Config) *Whisper {
	if cfg.Threads <= 0 {
		cfg.Threads = DefaultThreads
	}
	if cfg.BeamSize <= 0 {
		cfg.BeamSize = DefaultBeamSize
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Whisper{cfg: cfg}
}

// Transcribe writes buf to a transient WAV, runs the engine on it and reads
// the sibling transcript artifact back. Both files are removed before
// returning, whatever the outcome.
func (w *Whisper) Transcribe(ctx context.Context, buf *audio.Buffer) (string, error) {
	tmp, err := os.CreateTemp("", "v2t-*.wav")
	if err != nil {
		return "", &InvocationError{Err: err}
	}
	wavPath := tmp.Name()
	defer os.Remove(wavPath)

	if err := audio.EncodeWAV(tmp, buf.Samples); err != nil {
		tmp.Close()
		return "", &InvocationError{Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &InvocationError{Err: err}
	}

	// --output-txt writes the transcript next to the input file.
	txtPath := wavPath + ".txt"
	defer os.Remove(txtPath)

	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, w.cfg.EnginePath,
		"-m", w.cfg.ModelPath,
		"-f", wavPath,
		"-t", strconv.Itoa(w.cfg.Threads),
		"-l", w.cfg.Language,
		"-bs", strconv.Itoa(w.cfg.BeamSize),
		"--output-txt",
		"--no-timestamps",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", ErrTimeout
	}

	// The transcript artifact, not the exit status, decides success: the
	// engine exits non-zero on recoverable decode warnings and can exit
	// zero after failing to decode at all.
	if _, statErr := os.Stat(txtPath); statErr != nil {
		return "", &InvocationError{Stderr: headLines(stderr.String(), stderrLines), Err: runErr}
	}

	data, err := os.ReadFile(txtPath)
	if err != nil {
		return "", &ArtifactError{Path: txtPath, Err: err}
	}

	text := CollapseWhitespace(string(data))
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
