// LIGHTHOUSE - A decoder for lighthouse v2 optical sweep signals.
// Copyright (C) 2023 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package demod turns raw sweep captures into 64-bit chip sequences.
//
// The photodiode front end samples the line at a fixed rate and the data is
// biphase mark coded: every chip boundary has a transition and a one has an
// extra transition half way through. A zero therefore shows up as a single
// long run of identical samples and a one as a pair of short runs. Only run
// lengths matter, never polarity.
package demod

import (
	"errors"
	"strings"

	"golang.org/x/xerrors"
)

const (
	// BufferSize is the number of bytes captured per receiver per window.
	BufferSize = 128

	// SymbolCapacity is the maximum number of runs a capture may contain.
	SymbolCapacity = 128

	// Runs at least ZeroRunLength long are zeros, runs at most OneRunLength
	// long are half of a one. Anything between is ambiguous.
	ZeroRunLength = 5
	OneRunLength  = 3

	// ChipBits is the length of a packed chip sequence.
	ChipBits = 64
)

var (
	ErrOverflow   = errors.New("demod: zero crossing count exceeds symbol capacity")
	ErrBufferSize = errors.New("demod: invalid capture buffer size")
)

// Symbol is a classified run.
type Symbol uint8

const (
	Zero Symbol = iota
	One
	Ambiguous
)

func (s Symbol) String() string {
	switch s {
	case Zero:
		return "0"
	case One:
		return "1"
	}
	return "?"
}

// Classify returns the symbol for a run of the given length.
func Classify(length int) Symbol {
	switch {
	case length >= ZeroRunLength:
		return Zero
	case length <= OneRunLength:
		return One
	}
	return Ambiguous
}

// Runs holds the lengths of consecutive identical samples in a capture.
type Runs struct {
	length [SymbolCapacity]uint16
	n      int
}

func (r Runs) Len() int { return r.n }

func (r Runs) At(idx int) int { return int(r.length[idx]) }

// Symbols is a fixed capacity sequence of classified runs.
type Symbols struct {
	sym [SymbolCapacity]Symbol
	n   int
}

// NewSymbols copies syms into a Symbols, it panics if syms exceeds
// SymbolCapacity.
func NewSymbols(syms ...Symbol) (s Symbols) {
	if len(syms) > SymbolCapacity {
		panic(xerrors.Errorf("%d symbols: %w", len(syms), ErrOverflow))
	}
	s.n = copy(s.sym[:], syms)
	return
}

func (s Symbols) Len() int { return s.n }

func (s Symbols) At(idx int) Symbol { return s.sym[idx] }

// Slice returns the valid symbols.
func (s *Symbols) Slice() []Symbol { return s.sym[:s.n] }

func (s Symbols) String() string {
	var b strings.Builder
	for _, sym := range s.sym[:s.n] {
		b.WriteString(sym.String())
	}
	return b.String()
}

// CountRuns measures the run lengths of buf, most significant bit first and
// continuing across byte boundaries. The run still open when the capture
// ends is kept.
func CountRuns(buf []byte) (r Runs, err error) {
	if len(buf) != BufferSize {
		return r, xerrors.Errorf("%d bytes: %w", len(buf), ErrBufferSize)
	}

	prev := buf[0] >> 7
	r.n = 1
	for _, b := range buf {
		for bit := 7; bit >= 0; bit-- {
			sample := (b >> uint(bit)) & 0x01
			if sample != prev {
				if r.n == SymbolCapacity {
					return r, ErrOverflow
				}
				r.n++
				prev = sample
			}
			// First sample of the buffer is counted here as well.
			r.length[r.n-1]++
		}
	}

	return r, nil
}

// Symbolize classifies each run.
func (r Runs) Symbolize() (s Symbols) {
	s.n = r.n
	for idx := range s.sym[:s.n] {
		s.sym[idx] = Classify(r.At(idx))
	}
	return
}

// Demodulate classifies, resolves and packs a capture into a chip sequence.
func Demodulate(buf []byte) (uint64, error) {
	runs, err := CountRuns(buf)
	if err != nil {
		return 0, err
	}

	syms := runs.Symbolize()
	Resolve(&syms)

	return Pack(syms), nil
}
