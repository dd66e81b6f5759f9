package gen

import (
	"bytes"
	"math/bits"
	"math/rand"
	"testing"
	"testing/quick"
)

func TestHalfChips(t *testing.T) {
	recv := HalfChips(0x8000000000000000, 2)
	expt := []byte{0, 1, 0, 0}
	if !bytes.Equal(recv, expt) {
		t.Fatalf("Expected %d got %d\n", expt, recv)
	}
}

func TestHalfChipsRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for oversized chip count")
		}
	}()
	HalfChips(0, MaxChips+1)
}

func TestCapture(t *testing.T) {
	testCases := []struct {
		chips uint64
		n     int
		head  byte
		fill  byte
	}{
		{0, 0, 0xC0, 0x00},
		{0x8000000000000000, 1, 0xC7, 0x00},
		{0x0000000000000000, 1, 0xC0, 0xFF},
	}

	for _, tc := range testCases {
		recv := Capture(tc.chips, tc.n)
		if len(recv) != CaptureSize {
			t.Fatalf("Expected %d bytes got %d\n", CaptureSize, len(recv))
		}

		expt := bytes.Repeat([]byte{tc.fill}, CaptureSize)
		expt[0] = tc.head

		if !bytes.Equal(recv, expt) {
			t.Fatalf("%016X/%d: expected %02X got %02X\n", tc.chips, tc.n, expt[:4], recv[:4])
		}
	}
}

func TestStretch(t *testing.T) {
	// Lead-in, a four sample half chip, then the second half of the one.
	recv := Stretch(0x8000000000000000, 1, 0, 1)
	expt := make([]byte, CaptureSize)
	expt[0], expt[1] = 0xC3, 0x80

	if !bytes.Equal(recv, expt) {
		t.Fatalf("Expected %02X got %02X\n", expt[:4], recv[:4])
	}

	if !bytes.Equal(Stretch(0x8000000000000000, 1, 1, 0), Capture(0x8000000000000000, 1)) {
		t.Fatal("zero stretch differs from Capture")
	}
}

func TestStretchRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for half chip out of range")
		}
	}()
	Stretch(0, 1, 2, 1)
}

func TestPackBits(t *testing.T) {
	err := quick.Check(func(data []byte) bool {
		return bytes.Equal(PackBits(UnpackBits(data)), data)
	}, nil)
	if err != nil {
		t.Fatal("Error testing pack/unpack:", err)
	}
}

func TestUnpackBits(t *testing.T) {
	recv := UnpackBits([]byte{0xF9})
	expt := []byte{1, 1, 1, 1, 1, 0, 0, 1}
	if !bytes.Equal(recv, expt) {
		t.Fatalf("Expected %d got %d\n", expt, recv)
	}
}

func TestUpsample(t *testing.T) {
	recv := Upsample([]byte{1, 0}, 3)
	expt := []byte{1, 1, 1, 0, 0, 0}
	if !bytes.Equal(recv, expt) {
		t.Fatalf("Expected %d got %d\n", expt, recv)
	}
}

func TestFlip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 64; i++ {
		buf := Capture(r.Uint64(), MaxChips)
		flipped := append([]byte(nil), buf...)
		Flip(flipped, 1, r)

		diff := 0
		for idx := range buf {
			diff += bits.OnesCount8(buf[idx] ^ flipped[idx])
		}
		if diff != 1 {
			t.Fatalf("Expected 1 sample flipped, got %d\n", diff)
		}
	}
}
