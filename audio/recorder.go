package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrNoAudio means the stream delivered no chunks at all, e.g. the key was
// released before the device produced its first buffer. Callers treat it as
// a no-op, not a failure.
var ErrNoAudio = errors.New("no audio captured")

// DefaultMaxDuration caps a single utterance as a safety limit: a stuck key
// must not record forever.
const DefaultMaxDuration = 30 * time.Second

// lowSignalPeak is the peak amplitude below which a buffer is considered
// near-silent (roughly -36 dBFS). Matches a muted or misconfigured mic.
const lowSignalPeak = 500

// Buffer holds one captured utterance.
type Buffer struct {
	Samples []int16

	// Truncated is set when capture hit the duration ceiling before the
	// stop signal arrived.
	Truncated bool
}

func (b *Buffer) Duration() time.Duration {
	return time.Duration(len(b.Samples)) * time.Second / SampleRate
}

func (b *Buffer) Peak() int16 {
	var peak int16
	for _, s := range b.Samples {
		if s == math.MinInt16 {
			return math.MaxInt16
		}
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// LowSignal reports whether the buffer is quiet enough that the mic volume
// is probably wrong. The buffer is still usable; this is advisory.
func (b *Buffer) LowSignal() bool {
	return b.Peak() < lowSignalPeak
}

// Normalize scales samples so the peak reaches the full 16-bit range,
// which measurably helps recognition on quiet recordings. Silent and empty
// buffers are left untouched.
func (b *Buffer) Normalize() {
	peak := b.Peak()
	if peak == 0 {
		return
	}
	scale := float64(math.MaxInt16) / float64(peak)
	for i, s := range b.Samples {
		b.Samples[i] = int16(math.Round(float64(s) * scale))
	}
}

// Recorder accumulates capture chunks into a Buffer, bounded by a hard
// duration ceiling. One Recorder serves one utterance.
type Recorder struct {
	maxDuration time.Duration
	level       func(rms float64)
}

func NewRecorder(maxDuration time.Duration) *Recorder {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	return &Recorder{maxDuration: maxDuration}
}

// OnLevel registers a meter callback invoked with the RMS level of each
// chunk, in [0, 1]. Must be set before Record.
func (r *Recorder) OnLevel(fn func(rms float64)) {
	r.level = fn
}

// Record runs the capture stream until stop fires or the duration ceiling
// is hit, whichever comes first, and returns everything accumulated up to
// that point. Chunks are appended strictly in arrival order. The device
// callback is cleared and the stream stopped on every exit path.
func (r *Recorder) Record(dev CaptureDevice, stop <-chan struct{}) (*Buffer, error) {
	var mu sync.Mutex
	var samples []int16
	var stopped bool

	dev.SetCallback(func(data []byte, frameCount uint32) {
		mu.Lock()
		if stopped {
			mu.Unlock()
			return
		}
		for i := 0; i+1 < len(data); i += 2 {
			samples = append(samples, int16(binary.LittleEndian.Uint16(data[i:])))
		}
		mu.Unlock()

		if r.level != nil && len(data) > 1 {
			r.level(chunkRMS(data))
		}
	})
	defer dev.ClearCallback()

	if err := dev.Start(); err != nil {
		return nil, fmt.Errorf("starting capture: %w", err)
	}

	truncated := false
	ceiling := time.NewTimer(r.maxDuration)
	defer ceiling.Stop()
	select {
	case <-stop:
	case <-ceiling.C:
		truncated = true
	}

	dev.Stop()

	mu.Lock()
	stopped = true
	buf := samples
	mu.Unlock()

	if len(buf) == 0 {
		return nil, ErrNoAudio
	}
	return &Buffer{Samples: buf, Truncated: truncated}, nil
}

func chunkRMS(data []byte) float64 {
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(len(data)/2))
}
