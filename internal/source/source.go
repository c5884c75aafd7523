// SPDX-License-Identifier: MIT
//
// Package source decodes recorded audio files into mono sample streams for
// offline analysis.
package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions without a decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Source is an open audio stream. Read fills dst with mono samples in
// [-1, 1] and returns io.EOF once the stream is exhausted.
type Source interface {
	Format() string
	SampleRate() float64
	Channels() int
	Len() int64 // Frames, or 0 when unknown.
	Read(dst []float64) (int, error)
	Close() error
}

// Decoder opens files of the extensions it lists.
type Decoder interface {
	Open(path string) (Source, error)
	Extensions() []string
}

// Registry maps lower-case extensions, without the dot, to decoders.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry returns a Registry with the WAV and FLAC decoders.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[string]Decoder)}
	r.Register(WAVDecoder{})
	r.Register(FLACDecoder{})
	return r
}

// Register adds d for each of its extensions, replacing earlier entries.
func (r *Registry) Register(d Decoder) {
	for _, ext := range d.Extensions() {
		r.decoders[strings.ToLower(strings.TrimPrefix(ext, "."))] = d
	}
}

// Extensions lists the registered extensions in order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.decoders))
	for ext := range r.decoders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Decoder returns the decoder for path's extension.
func (r *Registry) Decoder(path string) (Decoder, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return nil, fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	d, ok := r.decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: .%s (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(r.Extensions(), ", "))
	}
	return d, nil
}

// Open opens path with the decoder registered for its extension.
func (r *Registry) Open(path string) (Source, error) {
	d, err := r.Decoder(path)
	if err != nil {
		return nil, err
	}
	return d.Open(path)
}

// fullScale returns the magnitude of the most negative sample at bitDepth.
func fullScale(bitDepth int) (float64, error) {
	if bitDepth < 8 || bitDepth > 32 {
		return 0, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	return float64(int64(1) << (bitDepth - 1)), nil
}
