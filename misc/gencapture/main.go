// Writes synthetic capture recordings.
//
// Each frame places receiver 0 and receiver 1 at random locations on their
// polynomials. The expected locations are logged so decoded output can be
// compared against them.

package main

import (
	"math/rand"
	"strconv"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/bemasher/lighthouse/capture"
	"github.com/bemasher/lighthouse/gen"
	"github.com/bemasher/lighthouse/lfsr"
)

var (
	output = flag.StringP("output", "o", "capture.bin", "recording to write, .gz and .zst are compressed")
	frames = flag.IntP("frames", "n", 16, "number of frames to write")
	polys  = flag.IntSlice("poly", []int{0, 1}, "polynomial index per receiver")
	offset = flag.Int("offset", 0, "random chips preceding the sequence")
	flips  = flag.Int("flips", 0, "random sample flips per window")
	seed   = flag.Int64("seed", 1, "random seed")
)

// sequence returns chips whose first offset chips are noise followed by
// polynomial p from location onwards.
func sequence(r *rand.Rand, p lfsr.Polynomial, location, offset int) uint64 {
	state := p.Advance(lfsr.Reference, location+offset)
	chips := p.Generate(state, lfsr.MaxGenerate-offset)

	if offset > 0 {
		chips |= r.Uint64() << uint(64-offset)
	}

	return chips
}

func main() {
	flag.Parse()

	if len(*polys) != capture.Receivers {
		logrus.Fatalf("expected %d polynomials, got %d", capture.Receivers, len(*polys))
	}
	if *offset < 0 || *offset > lfsr.MaxGenerate {
		logrus.Fatalf("offset out of range: %d", *offset)
	}

	var catalogue [capture.Receivers]lfsr.Polynomial
	for receiver, index := range *polys {
		p, err := lfsr.Lookup(index)
		if err != nil {
			logrus.Fatal(err)
		}
		catalogue[receiver] = p
	}

	wr, err := capture.Create(*output)
	if err != nil {
		logrus.Fatalf("%+v", err)
	}

	r := rand.New(rand.NewSource(*seed))

	for frame := 0; frame < *frames; frame++ {
		var f capture.Frame
		fields := logrus.Fields{"frame": frame}

		for receiver, p := range catalogue {
			location := r.Intn(lfsr.Period)
			chips := sequence(r, p, location, *offset)

			window := gen.Capture(chips, gen.MaxChips)
			gen.Flip(window, *flips, r)
			copy(f[receiver][:], window)

			fields["receiver"+strconv.Itoa(receiver)] = p.Name + "@" + strconv.Itoa(location)
		}

		if err := wr.Write(f); err != nil {
			logrus.Fatalf("%+v", err)
		}

		logrus.WithFields(fields).Info("generated")
	}

	if err := wr.Close(); err != nil {
		logrus.Fatalf("%+v", err)
	}
}
