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

package session

import (
	"fmt"
	"strconv"

	"github.com/bemasher/lighthouse/lfsr"
	"github.com/bemasher/lighthouse/match"
)

// A Sweep is the decoded chip sequence of one receiver and its match.
type Sweep struct {
	Chips uint64
	Match match.Result
}

// Seed returns the register state the match was anchored on.
func (s Sweep) Seed() uint32 {
	return match.Seed(s.Chips, s.Match.Offset)
}

// locate converts the sweep's seed into the step count of its first chip.
// The seed sits Offset chips into the sequence so the location is shifted
// back by that much, wrapping around the cycle.
func (s Sweep) locate() (Location, error) {
	steps, err := lfsr.Locate(s.Match.Polynomial, s.Seed())
	if err != nil {
		return Location{}, err
	}

	loc := (int(steps) - s.Match.Offset + lfsr.Period) % lfsr.Period

	return Location{s.Match.Polynomial, uint32(loc)}, nil
}

// A Location is a polynomial and a step count from the reference state.
type Location struct {
	Polynomial int    `json:"polynomial"`
	Location   uint32 `json:"location"`
}

func (l Location) String() string {
	return fmt.Sprintf("{Polynomial:%d Location:%6d}", l.Polynomial, l.Location)
}

// A LocationPair holds one location per receiver ordered by ascending
// location.
type LocationPair [Receivers]Location

// ordered swaps the pair so the smaller location comes first.
func (lp LocationPair) ordered() LocationPair {
	if lp[0].Location > lp[1].Location {
		lp[0], lp[1] = lp[1], lp[0]
	}
	return lp
}

func (lp LocationPair) String() string {
	return fmt.Sprintf("{%s %s}", lp[0], lp[1])
}

func (lp LocationPair) Header() []string {
	return []string{"polynomial0", "location0", "polynomial1", "location1"}
}

func (lp LocationPair) Record() (r []string) {
	for _, l := range lp {
		r = append(r, strconv.Itoa(l.Polynomial))
		r = append(r, strconv.FormatUint(uint64(l.Location), 10))
	}
	return
}
