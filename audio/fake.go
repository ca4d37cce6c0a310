package audio

import (
	"sync"
	"time"
)

const fakeChunkFrames = 1600 // 100 ms at 16 kHz

// FakeContext feeds canned PCM through the CaptureDevice interface. Once
// the samples run out the stream goes quiet (no callbacks), which is how
// a real device looks when nobody is speaking into a dead mic.
type FakeContext struct {
	pcm      []int16
	interval time.Duration // delay between chunks; 0 feeds as fast as possible
}

func NewFakeContext(pcm []int16, interval time.Duration) *FakeContext {
	return &FakeContext{pcm: pcm, interval: interval}
}

// NewFakeContextFromWAV loads the canned samples from a WAV file.
func NewFakeContextFromWAV(wavPath string, interval time.Duration) (*FakeContext, error) {
	pcm, err := ReadWAVData(wavPath)
	if err != nil {
		return nil, err
	}
	return &FakeContext{pcm: pcm, interval: interval}, nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return nil, nil }
func (f *FakeContext) Close()                         {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{pcm: f.pcm, interval: f.interval, audioDone: make(chan struct{})}, nil
}

type FakeCapture struct {
	pcm      []int16
	interval time.Duration

	mu        sync.Mutex
	cb        DataCallback
	stopCh    chan struct{}
	feedDone  chan struct{}
	audioDone chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

// AudioDone is closed once all canned samples have been fed. Valid after
// Start; reset by Stop so the capture can be replayed.
func (f *FakeCapture) AudioDone() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audioDone
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	if f.audioDone == nil {
		f.audioDone = make(chan struct{})
	}
	stopCh, audioDone := f.stopCh, f.audioDone
	f.mu.Unlock()

	go func() {
		defer close(f.feedDone)
		pos := 0
		fed := false
		for {
			select {
			case <-stopCh:
				return
			default:
			}

			f.mu.Lock()
			cb := f.cb
			f.mu.Unlock()

			if pos >= len(f.pcm) {
				if !fed {
					fed = true
					close(audioDone)
				}
				select {
				case <-stopCh:
				}
				return
			}

			end := min(pos+fakeChunkFrames, len(f.pcm))
			if cb != nil {
				chunk := make([]byte, (end-pos)*2)
				for i, s := range f.pcm[pos:end] {
					chunk[i*2] = byte(s)
					chunk[i*2+1] = byte(uint16(s) >> 8)
				}
				cb(chunk, uint32(end-pos))
			}
			pos = end

			if f.interval > 0 {
				select {
				case <-stopCh:
					return
				case <-time.After(f.interval):
				}
			}
		}
	}()

	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stopCh, feedDone := f.stopCh, f.feedDone
	f.mu.Unlock()
	if stopCh == nil {
		return
	}
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	<-feedDone
	f.mu.Lock()
	f.audioDone = make(chan struct{}) // reset for replay
	f.mu.Unlock()
}

func (f *FakeCapture) Close() {}
