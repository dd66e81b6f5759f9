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

// Package match identifies which polynomial produced a chip sequence and
// where in the sequence trustworthy data begins.
package match

import (
	"errors"
	"fmt"

	"github.com/bemasher/lighthouse/lfsr"
	"golang.org/x/xerrors"
)

const (
	DefaultWindow    = lfsr.MaxGenerate
	DefaultThreshold = 4
	DefaultMaxOffset = 8
	DefaultMinWindow = 10
)

var ErrConfig = errors.New("match: invalid matcher configuration")

// Matcher holds the search parameters. The window only ever shrinks and the
// error threshold only ever tightens as the search progresses.
type Matcher struct {
	// Catalogue indices to compare against.
	Candidates []int `yaml:"candidates"`

	// Initial comparison window and bit error threshold.
	Window    int `yaml:"window"`
	Threshold int `yaml:"threshold"`

	// Offsets up to MaxOffset+1 are tried before the offset resets.
	MaxOffset int `yaml:"maxoffset"`

	// The search gives up once the window is shorter than MinWindow.
	MinWindow int `yaml:"minwindow"`
}

// Default returns the matcher used by the decoder: polynomials 0 and 1, a
// 47 bit window and up to 4 bit errors.
func Default() Matcher {
	return Matcher{
		Candidates: []int{0, 1},
		Window:     DefaultWindow,
		Threshold:  DefaultThreshold,
		MaxOffset:  DefaultMaxOffset,
		MinWindow:  DefaultMinWindow,
	}
}

// Validate checks that every comparison the search could make fits within
// a 64-bit chip sequence.
func (m Matcher) Validate() error {
	if len(m.Candidates) == 0 {
		return xerrors.Errorf("no candidates: %w", ErrConfig)
	}
	for _, c := range m.Candidates {
		if _, err := lfsr.Lookup(c); err != nil {
			return xerrors.Errorf("candidate %d: %w", c, ErrConfig)
		}
	}

	switch {
	case m.Window < 1 || m.Window > lfsr.MaxGenerate:
		return xerrors.Errorf("window %d: %w", m.Window, ErrConfig)
	case m.MinWindow < 1:
		return xerrors.Errorf("minimum window %d: %w", m.MinWindow, ErrConfig)
	case m.Threshold < 1:
		return xerrors.Errorf("threshold %d: %w", m.Threshold, ErrConfig)
	case m.MaxOffset < 0:
		return xerrors.Errorf("max offset %d: %w", m.MaxOffset, ErrConfig)
	}

	return nil
}

// Result describes a successful match.
type Result struct {
	Polynomial int
	Offset     int
	Window     int
	Errors     int
}

func (r Result) String() string {
	return fmt.Sprintf("{Polynomial:%d Offset:%d Window:%d Errors:%d}", r.Polynomial, r.Offset, r.Window, r.Errors)
}

// Seed extracts the 17 bit register state starting offset bits into chips.
func Seed(chips uint64, offset int) uint32 {
	return uint32(chips>>uint(64-lfsr.Width-offset)) & lfsr.Mask
}

// following returns the window bits of chips after the seed at offset.
func following(chips uint64, offset, window int) uint64 {
	return (chips << uint(offset+lfsr.Width)) >> uint(64-window)
}

// Match searches chips for the seed and polynomial that best explain it. A
// candidate is accepted when its Hamming distance over the window is within
// the threshold and strictly smaller than every other candidate's.
func (m Matcher) Match(chips uint64) (r Result, ok bool) {
	offset, window, threshold := 0, m.Window, m.Threshold

	for window >= m.MinWindow {
		seed := Seed(chips, offset)
		actual := following(chips, offset, window)
		mask := uint64(1)<<uint(window) - 1

		best, bestErrors, tied := -1, 0, false
		for _, c := range m.Candidates {
			generated := lfsr.Polynomials[c].Generate(seed, window) & mask
			dist := lfsr.HammingWeight(generated ^ actual)

			switch {
			case best == -1 || dist < bestErrors:
				best, bestErrors, tied = c, dist, false
			case dist == bestErrors:
				tied = true
			}
		}

		if best != -1 && !tied && bestErrors <= threshold {
			return Result{best, offset, window, bestErrors}, true
		}

		if offset > m.MaxOffset {
			offset = 0
			if threshold > 1 {
				threshold--
			}
		} else {
			offset++
		}
		window--
	}

	return Result{}, false
}
