// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavChunkFrames is the number of frames decoded per PCMBuffer call.
const wavChunkFrames = 4096

// WAVDecoder opens RIFF/WAVE PCM files.
type WAVDecoder struct{}

// Extensions implements Decoder.
func (WAVDecoder) Extensions() []string { return []string{"wav", "wave"} }

// Open implements Decoder.
func (WAVDecoder) Open(path string) (Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		file.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}
	bitDepth := int(dec.BitDepth)
	scale, err := fullScale(bitDepth)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	channels := int(dec.NumChans)
	if channels < 1 || dec.SampleRate == 0 {
		file.Close()
		return nil, fmt.Errorf("invalid WAV format in %s: %d channels at %d Hz", path, channels, dec.SampleRate)
	}

	if err := dec.FwdToPCM(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to locate WAV data chunk: %w", err)
	}
	var frames int64
	if bytesPerFrame := int64(channels * bitDepth / 8); bytesPerFrame > 0 {
		frames = dec.PCMLen() / bytesPerFrame
	}

	return &wavSource{
		file:       file,
		dec:        dec,
		sampleRate: float64(dec.SampleRate),
		channels:   channels,
		bitDepth:   bitDepth,
		scale:      scale,
		frames:     frames,
		buf: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: channels, SampleRate: int(dec.SampleRate)},
			Data:   make([]int, wavChunkFrames*channels),
		},
	}, nil
}

type wavSource struct {
	file       *os.File
	dec        *wav.Decoder
	sampleRate float64
	channels   int
	bitDepth   int
	scale      float64
	frames     int64

	buf     *audio.IntBuffer
	pending []int // Decoded interleaved samples not yet returned.
	eof     bool
}

func (s *wavSource) Format() string      { return "wav" }
func (s *wavSource) SampleRate() float64 { return s.sampleRate }
func (s *wavSource) Channels() int       { return s.channels }
func (s *wavSource) Len() int64          { return s.frames }

// Read averages interleaved channels into mono samples.
func (s *wavSource) Read(dst []float64) (int, error) {
	n := 0
	for n < len(dst) {
		if len(s.pending) < s.channels {
			if s.eof {
				break
			}
			if err := s.fill(); err != nil {
				return n, err
			}
			continue
		}
		frames := min(len(dst)-n, len(s.pending)/s.channels)
		for i := range frames {
			frame := s.pending[i*s.channels : (i+1)*s.channels]
			dst[n+i] = s.mix(frame)
		}
		s.pending = s.pending[frames*s.channels:]
		n += frames
	}
	if n == 0 && s.eof {
		return 0, io.EOF
	}
	return n, nil
}

func (s *wavSource) fill() error {
	s.buf.Data = s.buf.Data[:cap(s.buf.Data)]
	got, err := s.dec.PCMBuffer(s.buf)
	if err != nil {
		return fmt.Errorf("failed to decode WAV data: %w", err)
	}
	if got == 0 {
		s.eof = true
		s.pending = nil
		return nil
	}
	s.pending = s.buf.Data[:got]
	return nil
}

func (s *wavSource) mix(frame []int) float64 {
	var sum float64
	for _, v := range frame {
		if s.bitDepth == 8 {
			v -= 128 // 8-bit PCM is unsigned.
		}
		sum += float64(v)
	}
	return sum / float64(len(frame)) / s.scale
}

func (s *wavSource) Close() error {
	return s.file.Close()
}
