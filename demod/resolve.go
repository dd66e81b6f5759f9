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

package demod

// A valid capture never has an odd number of ones between two zeros since
// each one chip is a pair of short runs. Resolving works from a few rules of
// thumb, most important first:
//
//  1. Odd runs of ones are not allowed.
//  2. An ambiguous symbol before an odd run of ones is almost always a one.
//  3. An ambiguous symbol between even runs of ones is almost always a zero.
//  4. Detected ones are rarely wrong, detected zeros can be at low SNR.
//  5. The first symbol is unreliable because the capture starts at an
//     arbitrary point in the signal, it never counts towards a run.
//
// Earlier chips are more trustworthy than later ones, the polynomial search
// tolerates errors towards the end of the sequence.

// Resolve replaces every ambiguous symbol and repairs odd runs of ones.
func Resolve(s *Symbols) {
	resolveForward(s)
	resolveCleanup(s)
}

// onesFrom counts the ones starting at idx.
func (s *Symbols) onesFrom(idx int) (count int) {
	for ; idx < s.n && s.sym[idx] == One; idx++ {
		count++
	}
	return
}

// resolveForward settles ambiguous symbols whose context makes the answer
// clear and leaves the rest for the cleanup pass.
func resolveForward(s *Symbols) {
	syms := s.sym[:s.n]

	// Ones seen since the last zero.
	ones := 0

	for idx := 0; idx < len(syms); {
		switch syms[idx] {
		case Zero:
			ones = 0
			idx++
			continue
		case One:
			if idx != 0 {
				ones++
			}
			idx++
			continue
		}

		// Final symbol has nothing after it to go by.
		if idx == len(syms)-1 {
			syms[idx] = Zero
			ones = 0
			idx++
			continue
		}

		next := syms[idx+1]

		switch {
		case ones == 0:
			switch next {
			case Zero:
				syms[idx] = Zero
				idx++
			case Ambiguous:
				// Two in a row after a zero, not worth guessing.
				idx += 2
			case One:
				// An odd run after this means it must be a one. An even run is
				// indeterminate, count it as a zero for now.
				if s.onesFrom(idx+1)%2 == 1 {
					syms[idx] = One
					ones = 1
				}
				idx++
			}
		case ones%2 == 0:
			switch next {
			case Zero:
				syms[idx] = Zero
				ones = 0
			case One:
				if (ones+s.onesFrom(idx+1))%2 == 1 {
					syms[idx] = One
					ones++
				} else {
					ones = 0
				}
			}
			idx++
		default:
			switch next {
			case Ambiguous:
				syms[idx] = One
				syms[idx+1] = Zero
				ones = 0
				idx += 2
			case One:
				syms[idx] = One
				ones++
				idx++
			case Zero:
				idx++
			}
		}
	}
}

// resolveCleanup settles remaining ambiguous symbols by the parity of the
// run before them and repairs odd runs by turning the symbol just before
// the run into a one.
func resolveCleanup(s *Symbols) {
	syms := s.sym[:s.n]

	ones := 0
	for idx, sym := range syms {
		if sym == Ambiguous {
			if ones%2 == 1 {
				sym = One
			} else {
				sym = Zero
			}
			syms[idx] = sym
		}

		if sym == Zero {
			if ones%2 == 1 {
				syms[idx-ones-1] = One
			}
			ones = 0
		} else if idx != 0 {
			ones++
		}
	}
}

// Pack loads resolved symbols into a 64-bit chip sequence, first chip in the
// most significant bit. A zero consumes one symbol and a one consumes the
// pair of short runs it was sent as. Unfilled low bits are zero.
func Pack(s Symbols) (chips uint64) {
	syms := s.sym[:s.n]

	idx := 0
	if len(syms) > 0 && syms[0] != Zero {
		idx = 1
	}

	n := 0
	for ; n < ChipBits && idx < len(syms); n++ {
		chips <<= 1
		if syms[idx] == One {
			chips |= 1
			idx += 2
		} else {
			idx++
		}
	}

	if n < ChipBits {
		chips <<= uint(ChipBits - n)
	}

	return chips
}
