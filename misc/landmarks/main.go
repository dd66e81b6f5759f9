// Calculates:
// Landmark states for each catalogued polynomial.
// Whether the catalogued table matches the computed one.
// Period of each polynomial from the reference state.

package main

import (
	"fmt"

	"github.com/bemasher/lighthouse/lfsr"
)

func main() {
	for _, p := range lfsr.Polynomials {
		computed := lfsr.NewPolynomial(p.Name, p.Taps)

		period := 1
		for state := p.Step(lfsr.Reference); state != lfsr.Reference; state = p.Step(state) {
			period++
		}

		fmt.Printf("%s Taps:0x%05X Period:%d\n", p.Name, p.Taps, period)
		for k := 0; k < lfsr.Landmarks; k++ {
			state, position := computed.Landmark(k)
			catalogued, _ := p.Landmark(k)

			status := "ok"
			if state != catalogued {
				status = fmt.Sprintf("mismatch, catalogued 0b%017b", catalogued)
			}
			fmt.Printf("\t0b%017b, // %6d %s\n", state, position, status)
		}
	}
}
