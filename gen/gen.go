package gen

import (
	"encoding/binary"
	"fmt"
	"math/rand"
)

const (
	// CaptureSize is the size of a single receiver window in bytes.
	CaptureSize = 128

	// SamplesPerChip is the nominal number of samples per chip, a one is
	// sent as two half chips of SamplesPerChip/2 samples each.
	SamplesPerChip = 6

	// LeadIn is the number of samples preceding the first chip. The capture
	// starts part way through the previous chip which the demodulator
	// discards.
	LeadIn = 2

	// MaxChips is the number of chips a uint64 holds.
	MaxChips = 64
)

// HalfChips biphase mark encodes the first n chips, most significant first,
// as half chip levels. Every chip boundary toggles the line, a one also
// toggles half way through. The line idles high before the first chip.
func HalfChips(chips uint64, n int) []byte {
	if n < 0 || n > MaxChips {
		panic(fmt.Errorf("chip count out of range: %d", n))
	}

	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, chips)

	halves := make([]byte, 0, n<<1)

	level := byte(1)
	for _, bit := range UnpackBits(raw)[:n] {
		level ^= 1
		halves = append(halves, level)
		level ^= bit
		halves = append(halves, level)
	}

	return halves
}

// Capture renders the first n chips of chips into a receiver window. The
// line holds its level after the last chip until the window is full.
func Capture(chips uint64, n int) []byte {
	return render(chips, n, -1, 0)
}

// Stretch renders like Capture but widens half chip number half by extra
// samples, shifting everything after it.
func Stretch(chips uint64, n, half, extra int) []byte {
	if half < 0 || half >= n<<1 {
		panic(fmt.Errorf("half chip out of range: %d", half))
	}
	return render(chips, n, half, extra)
}

func render(chips uint64, n, stretch, extra int) []byte {
	halves := HalfChips(chips, n)

	samples := make([]byte, 0, CaptureSize<<3+extra)
	for i := 0; i < LeadIn; i++ {
		samples = append(samples, 1)
	}
	for idx, level := range halves {
		width := SamplesPerChip >> 1
		if idx == stretch {
			width += extra
		}
		samples = append(samples, Upsample([]byte{level}, width)...)
	}

	last := byte(1)
	if len(halves) > 0 {
		last = halves[len(halves)-1]
	}
	last ^= 1

	for len(samples) < CaptureSize<<3 {
		samples = append(samples, last)
	}

	return PackBits(samples[:CaptureSize<<3])
}

// Flip inverts count randomly chosen samples of buf in place.
func Flip(buf []byte, count int, r *rand.Rand) {
	for i := 0; i < count; i++ {
		bit := r.Intn(len(buf) << 3)
		buf[bit>>3] ^= 0x80 >> uint(bit&7)
	}
}

func UnpackBits(data []byte) []byte {
	bits := make([]byte, len(data)<<3)

	for idx, b := range data {
		offset := idx << 3
		for bit := 7; bit >= 0; bit-- {
			bits[offset+(7-bit)] = (b >> uint8(bit)) & 0x01
		}
	}

	return bits
}

// PackBits is the inverse of UnpackBits, trailing bits that don't fill a
// byte are dropped.
func PackBits(bits []byte) []byte {
	data := make([]byte, len(bits)>>3)

	for idx := range data {
		for _, b := range bits[idx<<3 : (idx+1)<<3] {
			data[idx] = data[idx]<<1 | b&0x01
		}
	}

	return data
}

func Upsample(bits []byte, factor int) []byte {
	signal := make([]byte, len(bits)*factor)

	for idx, b := range bits {
		offset := idx * factor
		for i := 0; i < factor; i++ {
			signal[offset+i] = b
		}
	}

	return signal
}
