// SPDX-License-Identifier: MIT
package source

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"vocalscan/internal/testsignal"
)

// writeWAV encodes interleaved float samples at bitDepth into a temp file.
func writeWAV(t *testing.T, name string, sampleRate, bitDepth, channels int, interleaved []float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	peak := float64(int64(1)<<(bitDepth-1) - 1)
	data := make([]int, len(interleaved))
	for i, v := range interleaved {
		data[i] = int(math.Round(v * peak))
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

func readAll(t *testing.T, src Source, chunk int) []float64 {
	t.Helper()
	var out []float64
	buf := make([]float64, chunk)
	for {
		n, err := src.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
	}
}

func TestWAVMono(t *testing.T) {
	want := testsignal.Sine(10000, 16000, 220, 0.5)
	path := writeWAV(t, "mono.wav", 16000, 16, 1, want)

	src, err := NewRegistry().Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	if src.Format() != "wav" || src.SampleRate() != 16000 || src.Channels() != 1 {
		t.Errorf("format = %s %v Hz %d ch", src.Format(), src.SampleRate(), src.Channels())
	}
	if src.Len() != int64(len(want)) {
		t.Errorf("Len() = %d, want %d", src.Len(), len(want))
	}

	got := readAll(t, src, 1000)
	if len(got) != len(want) {
		t.Fatalf("read %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-3 {
			t.Fatalf("sample %d = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestWAVStereoIsMixed(t *testing.T) {
	const frames = 5000
	interleaved := make([]float64, 2*frames)
	for i := range frames {
		interleaved[2*i] = 0.5
		interleaved[2*i+1] = -0.25
	}
	path := writeWAV(t, "stereo.wav", 44100, 24, 2, interleaved)

	src, err := WAVDecoder{}.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	// Odd chunk size exercises frames straddling decode chunks.
	got := readAll(t, src, 333)
	if len(got) != frames {
		t.Fatalf("read %d frames, want %d", len(got), frames)
	}
	for i, v := range got {
		if math.Abs(v-0.125) > 1e-4 {
			t.Fatalf("frame %d = %f, want 0.125", i, v)
		}
	}
	if n, err := src.Read(make([]float64, 8)); n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("Read() after end = %d, %v; want 0, EOF", n, err)
	}
}

func TestRegistryUnsupported(t *testing.T) {
	r := NewRegistry()
	for _, path := range []string{"take.mp3", "noextension", "clip.OGG"} {
		if _, err := r.Open(path); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("Open(%q) error = %v, want ErrUnsupportedFormat", path, err)
		}
	}
}

func TestRegistryExtensions(t *testing.T) {
	r := NewRegistry()
	got := r.Extensions()
	want := []string{"flac", "wav", "wave"}
	if len(got) != len(want) {
		t.Fatalf("Extensions() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Extensions() = %v, want %v", got, want)
		}
	}
	if _, err := r.Decoder("TAKE.WAV"); err != nil {
		t.Errorf("Decoder(upper case) error = %v", err)
	}
}

func TestOpenInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	garbage := []byte("definitely not audio data, just some bytes")
	for _, name := range []string{"bad.wav", "bad.flac"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, garbage, 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewRegistry().Open(path); err == nil {
			t.Errorf("Open(%s) error = nil, want decode error", name)
		}
	}
	if _, err := NewRegistry().Open(filepath.Join(dir, "missing.flac")); err == nil {
		t.Error("Open(missing) error = nil")
	}
}

func TestFullScale(t *testing.T) {
	tests := []struct {
		bits    int
		want    float64
		wantErr bool
	}{
		{8, 128, false},
		{16, 32768, false},
		{24, 8388608, false},
		{32, 2147483648, false},
		{4, 0, true},
		{64, 0, true},
	}
	for _, tt := range tests {
		got, err := fullScale(tt.bits)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("fullScale(%d) = %v, %v", tt.bits, got, err)
		}
	}
}
