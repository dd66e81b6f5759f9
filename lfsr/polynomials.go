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

package lfsr

import (
	"errors"

	"golang.org/x/xerrors"
)

// ErrPolynomial is returned for indices outside of the catalogue.
var ErrPolynomial = errors.New("lfsr: invalid polynomial index")

// Polynomials is the catalogue of known base station polynomials. Only the
// first two are matched against by default, the rest are kept so a receiver
// seeing other base stations can opt into them.
//
// Landmark tables were captured offline by running each register forward
// from the reference state, NewPolynomial reproduces them.
var Polynomials = [...]Polynomial{
	{
		Name: "p0",
		Taps: 0x1D258,
		landmarks: [Landmarks]uint32{
			0x00001,
			0b10101010110011101,
			0b10001010101011010,
			0b11001100100000010,
			0b01100101100011111,
			0b10010001101011110,
			0b10100011001011111,
			0b11110001010110001,
			0b10111000110011011,
			0b10100110100011110,
			0b11001101100010000,
			0b01000101110011111,
			0b11100101011110101,
			0b01001001110110111,
			0b11011100110011101,
			0b10000110101101011,
		},
	},
	{
		Name: "p1",
		Taps: 0x17E04,
		landmarks: [Landmarks]uint32{
			0x00001,
			0b11010000110111110,
			0b10110111100111100,
			0b11000010101101111,
			0b00101110001101110,
			0b01000011000110100,
			0b00010001010011110,
			0b10100101111010001,
			0b10011000000100001,
			0b01110011011010110,
			0b00100011101000011,
			0b10111011010000101,
			0b00110010100110110,
			0b01000111111100110,
			0b10001101000111011,
			0b00111100110011100,
		},
	},
	{
		Name: "p2",
		Taps: 0x1FF6B,
		landmarks: [Landmarks]uint32{
			0x00001,
			0b00011011011000100,
			0b01011101010010110,
			0b11001011001101010,
			0b01110001111011010,
			0b10110110011111010,
			0b10110001110000001,
			0b10001001011101001,
			0b00000010011101011,
			0b01100010101111011,
			0b00111000001101111,
			0b10101011100111000,
			0b01111110101111111,
			0b01000011110101010,
			0b01001011100000011,
			0b00010110111101110,
		},
	},
	{
		Name: "p3",
		Taps: 0x13F67,
		landmarks: [Landmarks]uint32{
			0x00001,
			0b11011011110010110,
			0b11000100000001101,
			0b11100011000010110,
			0b00011111010001100,
			0b11000001011110011,
			0b10011101110001010,
			0b00001011001111000,
			0b00111100010000101,
			0b01001111001010100,
			0b01011010010110011,
			0b11111101010001100,
			0b00110101011011111,
			0b01110110010101011,
			0b00010000110100010,
			0b00010111110101110,
		},
	},
}

// Lookup returns the catalogued polynomial at index.
func Lookup(index int) (Polynomial, error) {
	if index < 0 || index >= len(Polynomials) {
		return Polynomial{}, xerrors.Errorf("%d: %w", index, ErrPolynomial)
	}
	return Polynomials[index], nil
}

// Locate finds seed on the cycle of the catalogued polynomial at index.
func Locate(index int, seed uint32) (uint32, error) {
	p, err := Lookup(index)
	if err != nil {
		return 0, err
	}
	return p.Locate(seed)
}
