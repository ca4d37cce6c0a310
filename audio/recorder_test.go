package audio

import (
	"errors"
	"math"
	"testing"
	"time"
)

func sine(freq float64, dur time.Duration, amp float64) []int16 {
	n := int(float64(SampleRate) * dur.Seconds())
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / SampleRate
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * amp * 32767)
	}
	return samples
}

func record(t *testing.T, ctx *FakeContext, stop <-chan struct{}, maxDur time.Duration) (*Buffer, error) {
	t.Helper()
	dev, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: SampleRate, Channels: Channels})
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()
	return NewRecorder(maxDur).Record(dev, stop)
}

func TestRecordAccumulatesInOrder(t *testing.T) {
	// More than one chunk so ordering actually matters
	pcm := make([]int16, fakeChunkFrames*3+100)
	for i := range pcm {
		pcm[i] = int16(i % 30000)
	}
	ctx := NewFakeContext(pcm, 0)

	dev, _ := ctx.NewCapture(nil, CaptureConfig{})
	fake := dev.(*FakeCapture)

	stop := make(chan struct{})
	go func() {
		<-fake.AudioDone()
		close(stop)
	}()

	buf, err := NewRecorder(time.Second).Record(dev, stop)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf.Samples) != len(pcm) {
		t.Fatalf("got %d samples, want %d", len(buf.Samples), len(pcm))
	}
	for i, s := range buf.Samples {
		if s != pcm[i] {
			t.Fatalf("sample %d reordered: got %d, want %d", i, s, pcm[i])
		}
	}
}

func TestRecordNoAudio(t *testing.T) {
	ctx := NewFakeContext(nil, 0)

	stop := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(stop)
	}()

	_, err := record(t, ctx, stop, time.Second)
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("got %v, want ErrNoAudio", err)
	}
}

func TestRecordDurationCeiling(t *testing.T) {
	// Feed forever-ish: a long buffer dripped in slowly, never send stop.
	pcm := make([]int16, fakeChunkFrames*100)
	ctx := NewFakeContext(pcm, 5*time.Millisecond)

	stop := make(chan struct{}) // never fires
	start := time.Now()
	buf, err := record(t, ctx, stop, 80*time.Millisecond)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatal(err)
	}
	if !buf.Truncated {
		t.Error("expected Truncated after hitting the ceiling")
	}
	if len(buf.Samples) == 0 {
		t.Error("expected accumulated samples to be returned on truncation")
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("capture took %v, expected termination near the 80ms ceiling", elapsed)
	}
}

func TestRecordStopSignal(t *testing.T) {
	pcm := make([]int16, fakeChunkFrames*100)
	ctx := NewFakeContext(pcm, time.Millisecond)

	stop := make(chan struct{})
	go func() {
		time.Sleep(30 * time.Millisecond)
		close(stop)
	}()

	buf, err := record(t, ctx, stop, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Truncated {
		t.Error("stop signal should not mark the buffer truncated")
	}
}

func TestNormalizePeak(t *testing.T) {
	buf := &Buffer{Samples: []int16{1000, -2000, 500}}
	buf.Normalize()
	if got := buf.Peak(); got != math.MaxInt16 {
		t.Errorf("post-normalization peak = %d, want %d", got, math.MaxInt16)
	}
	// Relative order of magnitudes must survive
	if buf.Samples[1] >= 0 {
		t.Error("sign flipped during normalization")
	}
}

func TestNormalizeTone(t *testing.T) {
	buf := &Buffer{Samples: sine(440, 100*time.Millisecond, 0.1)}
	buf.Normalize()
	peak := buf.Peak()
	if peak < math.MaxInt16-1 {
		t.Errorf("peak = %d, want ~%d", peak, math.MaxInt16)
	}
}

func TestNormalizeSilentNoop(t *testing.T) {
	buf := &Buffer{Samples: []int16{0, 0, 0}}
	buf.Normalize()
	for _, s := range buf.Samples {
		if s != 0 {
			t.Fatal("silent buffer must be left untouched")
		}
	}

	empty := &Buffer{}
	empty.Normalize() // must not panic
}

func TestLowSignal(t *testing.T) {
	quiet := &Buffer{Samples: []int16{10, -20, 5}}
	if !quiet.LowSignal() {
		t.Error("near-silent buffer should report LowSignal")
	}
	loud := &Buffer{Samples: sine(440, 50*time.Millisecond, 0.5)}
	if loud.LowSignal() {
		t.Error("loud buffer should not report LowSignal")
	}
}

func TestBufferDuration(t *testing.T) {
	buf := &Buffer{Samples: make([]int16, SampleRate*2)}
	if got := buf.Duration(); got != 2*time.Second {
		t.Errorf("duration = %v, want 2s", got)
	}
}

func TestIsBluetooth(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"Jabra Elite 75t", true},
		{"Built-in Microphone", false},
		{"USB Audio Device", false},
		{"Sony WH-1000XM4", true},
	}
	for _, tt := range tests {
		if got := IsBluetooth(tt.name); got != tt.want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
