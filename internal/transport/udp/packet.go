// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"vocalscan/internal/analysis"
)

/*
Packet layout, big endian:

	| seq    | timestamp | pitch | loudness | f1  | f2  | count  | bins        |
	| uint32 | int64 ns  | f32   | f32      | f32 | f32 | uint16 | count*uint8 |
*/

// HeaderSize is the number of bytes before the spectrum bins.
const HeaderSize = 4 + 8 + 4*4 + 2

// MaxBins is the largest spectrum a packet can carry.
const MaxBins = math.MaxUint16

// ErrShortPacket is returned by ParsePacket for truncated input.
var ErrShortPacket = errors.New("short UDP packet")

// Packet is the decoded form of one datagram.
type Packet struct {
	Seq        uint32
	Timestamp  int64 // Unix nanoseconds.
	Descriptor analysis.Descriptor
	Spectrum   []uint8
}

// AppendPacket appends the encoding of p to dst. Spectra longer than MaxBins
// are truncated.
func AppendPacket(dst []byte, p Packet) []byte {
	bins := p.Spectrum
	if len(bins) > MaxBins {
		bins = bins[:MaxBins]
	}
	dst = binary.BigEndian.AppendUint32(dst, p.Seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(p.Timestamp))
	dst = appendFloat32(dst, p.Descriptor.PitchHz)
	dst = appendFloat32(dst, p.Descriptor.LoudnessDb)
	dst = appendFloat32(dst, p.Descriptor.F1Hz)
	dst = appendFloat32(dst, p.Descriptor.F2Hz)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(bins)))
	return append(dst, bins...)
}

func appendFloat32(dst []byte, v float64) []byte {
	return binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(v)))
}

// ParsePacket decodes a datagram. The returned spectrum aliases b.
func ParsePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	p := Packet{
		Seq:       binary.BigEndian.Uint32(b[0:]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:])),
		Descriptor: analysis.Descriptor{
			PitchHz:    readFloat32(b[12:]),
			LoudnessDb: readFloat32(b[16:]),
			F1Hz:       readFloat32(b[20:]),
			F2Hz:       readFloat32(b[24:]),
		},
	}
	count := int(binary.BigEndian.Uint16(b[28:]))
	if len(b) < HeaderSize+count {
		return Packet{}, fmt.Errorf("%w: %d bins declared, %d present", ErrShortPacket, count, len(b)-HeaderSize)
	}
	p.Spectrum = b[HeaderSize : HeaderSize+count]
	return p, nil
}

func readFloat32(b []byte) float64 {
	return float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
}
