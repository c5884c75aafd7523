// SPDX-License-Identifier: MIT
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

// FLACDecoder opens native FLAC files.
type FLACDecoder struct{}

// Extensions implements Decoder.
func (FLACDecoder) Extensions() []string { return []string{"flac"} }

// Open implements Decoder.
func (FLACDecoder) Open(path string) (Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to parse FLAC file: %w", err)
	}
	info := stream.Info
	if info == nil || info.NChannels == 0 || info.SampleRate == 0 {
		file.Close()
		return nil, fmt.Errorf("missing FLAC stream info: %s", path)
	}
	scale, err := fullScale(int(info.BitsPerSample))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &flacSource{
		file:       file,
		stream:     stream,
		sampleRate: float64(info.SampleRate),
		channels:   int(info.NChannels),
		frames:     int64(info.NSamples),
		scale:      scale,
	}, nil
}

type flacSource struct {
	file       *os.File
	stream     *flac.Stream
	sampleRate float64
	channels   int
	frames     int64
	scale      float64

	current *frame.Frame
	offset  int // Next sample index in current.
	eof     bool
}

func (s *flacSource) Format() string      { return "flac" }
func (s *flacSource) SampleRate() float64 { return s.sampleRate }
func (s *flacSource) Channels() int       { return s.channels }
func (s *flacSource) Len() int64          { return s.frames }

// Read averages the subframes of each FLAC frame into mono samples.
func (s *flacSource) Read(dst []float64) (int, error) {
	n := 0
	for n < len(dst) {
		if s.current == nil || s.offset >= s.blockSize() {
			if s.eof {
				break
			}
			f, err := s.stream.ParseNext()
			if errors.Is(err, io.EOF) {
				s.eof = true
				s.current = nil
				continue
			}
			if err != nil {
				return n, fmt.Errorf("failed to decode FLAC frame: %w", err)
			}
			s.current, s.offset = f, 0
			continue
		}

		count := min(len(dst)-n, s.blockSize()-s.offset)
		for i := range count {
			var sum float64
			for _, sub := range s.current.Subframes {
				sum += float64(sub.Samples[s.offset+i])
			}
			dst[n+i] = sum / float64(len(s.current.Subframes)) / s.scale
		}
		s.offset += count
		n += count
	}
	if n == 0 && s.eof {
		return 0, io.EOF
	}
	return n, nil
}

func (s *flacSource) blockSize() int {
	if s.current == nil || len(s.current.Subframes) == 0 {
		return 0
	}
	return len(s.current.Subframes[0].Samples)
}

func (s *flacSource) Close() error {
	return s.file.Close()
}
