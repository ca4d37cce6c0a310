// Package encoder archives captured utterances as FLAC files.
package encoder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"

	"github.com/ElafAlzoubi/offline-voice-to-text-application/audio"
)

const blockSize = 4096

// WriteFLAC losslessly encodes mono 16-bit samples to path.
func WriteFLAC(path string, samples []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  blockSize,
		BlockSizeMax:  blockSize,
		SampleRate:    audio.SampleRate,
		NChannels:     audio.Channels,
		BitsPerSample: audio.BitsPerSample,
		NSamples:      uint64(len(samples)),
	}
	enc, err := flac.NewEncoder(f, info)
	if err != nil {
		f.Close()
		return fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)

	for off := 0; off < len(samples); off += blockSize {
		end := off + blockSize
		if end > len(samples) {
			end = len(samples)
		}
		if err := writeBlock(enc, samples[off:end]); err != nil {
			enc.Close()
			f.Close()
			return err
		}
	}

	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeBlock(enc *flac.Encoder, block []int16) error {
	samples32 := make([]int32, len(block))
	for i, s := range block {
		samples32[i] = int32(s)
	}

	subframe := &frame.Subframe{
		SubHeader: frame.SubHeader{
			Pred: frame.PredVerbatim,
		},
		Samples:  samples32,
		NSamples: len(block),
	}

	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    audio.SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: audio.BitsPerSample,
		},
		Subframes: []*frame.Subframe{subframe},
	}

	if err := enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	return nil
}

// Archive writes samples to a timestamped FLAC file under dir, creating
// the directory if needed. Returns the file path.
func Archive(dir string, samples []int16) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}
	name := time.Now().Format("20060102-150405.000")
	path := filepath.Join(dir, "utterance-"+name+".flac")
	if err := WriteFLAC(path, samples); err != nil {
		return "", err
	}
	return path, nil
}
