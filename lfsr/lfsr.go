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

// Package lfsr implements the 17-bit linear feedback shift registers used by
// lighthouse v2 base stations to encode sweep phase.
package lfsr

import (
	"errors"
	"fmt"
	"math/bits"

	"golang.org/x/xerrors"
)

const (
	Width = 17
	Mask  = 1<<Width - 1

	// Every catalogued polynomial is maximal length.
	Period = 1<<Width - 1

	// Reference is the state locations are counted from.
	Reference = 0x00001

	Landmarks       = 16
	LandmarkSpacing = 8192

	// MaxGenerate is the number of bits Generate can produce on top of the
	// 17 bit seed without overflowing 64 bits.
	MaxGenerate = 64 - Width
)

// ErrUnreachable is returned by Locate when a seed does not lie on the
// polynomial's cycle.
var ErrUnreachable = errors.New("lfsr: seed not on polynomial cycle")

// A Polynomial is a 17-bit tap mask and the table of landmark states along
// its cycle. landmarks[0] is the reference state, landmarks[k] is the state
// k*LandmarkSpacing-1 steps after it.
type Polynomial struct {
	Name string
	Taps uint32

	landmarks [Landmarks]uint32
}

// NewPolynomial builds a polynomial and computes its landmark table by
// running the register forward from the reference state.
func NewPolynomial(name string, taps uint32) (p Polynomial) {
	p.Name = name
	p.Taps = taps & Mask

	state := uint32(Reference)
	p.landmarks[0] = state
	for k := 1; k < Landmarks; k++ {
		steps := LandmarkSpacing
		if k == 1 {
			steps--
		}
		state = p.Advance(state, steps)
		p.landmarks[k] = state
	}

	return
}

func (p Polynomial) String() string {
	return fmt.Sprintf("{Name:%s Taps:0x%05X}", p.Name, p.Taps)
}

// Landmark returns the k'th landmark state and its distance from the
// reference state.
func (p Polynomial) Landmark(k int) (state, position uint32) {
	return p.landmarks[k], landmarkPosition(k)
}

func landmarkPosition(k int) uint32 {
	if k == 0 {
		return 0
	}
	return uint32(k*LandmarkSpacing - 1)
}

func parity(v uint32) uint32 {
	return uint32(bits.OnesCount32(v) & 1)
}

// Step advances the register one cycle forward in time. The new bit is the
// parity of the masked register and enters at the bottom.
func (p Polynomial) Step(state uint32) uint32 {
	return (state<<1)&Mask | parity(state&p.Taps)
}

// Unstep runs the register one cycle backwards in time, undoing Step.
func (p Polynomial) Unstep(state uint32) uint32 {
	newest := state & 1
	state = (state & Mask) >> 1
	return state | (parity(state&p.Taps)^newest)<<(Width-1)
}

// Advance steps the register n cycles forward.
func (p Polynomial) Advance(state uint32, n int) uint32 {
	for ; n > 0; n-- {
		state = p.Step(state)
	}
	return state
}

// Generate runs the register forward n cycles from seed. The result holds
// the seed in its upper bits followed by each generated bit, oldest first,
// so the final bit lands in bit 0.
func (p Polynomial) Generate(seed uint32, n int) (out uint64) {
	if n < 0 || n > MaxGenerate {
		panic(fmt.Errorf("lfsr: generate length out of range: %d", n))
	}

	state := seed & Mask
	out = uint64(state)
	for idx := 0; idx < n; idx++ {
		state = p.Step(state)
		out = out<<1 | uint64(state&1)
	}

	return
}

// Locate counts the forward steps between the reference state and seed.
// The register is run backwards from seed until it reaches a landmark, at
// which point the landmark's known position is added. Landmarks are never
// more than LandmarkSpacing apart, so the walk is bounded by that.
func (p Polynomial) Locate(seed uint32) (uint32, error) {
	state := seed & Mask

	for count := uint32(0); count <= LandmarkSpacing; count++ {
		for k, landmark := range p.landmarks {
			if state == landmark {
				return count + landmarkPosition(k), nil
			}
		}
		state = p.Unstep(state)
	}

	return 0, xerrors.Errorf("%s seed 0x%05X: %w", p.Name, seed&Mask, ErrUnreachable)
}

// HammingWeight returns the number of set bits in v.
func HammingWeight(v uint64) int {
	return bits.OnesCount64(v)
}
