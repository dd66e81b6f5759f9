package match

import (
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/bemasher/lighthouse/lfsr"
	"golang.org/x/xerrors"
)

var testCases = []struct {
	chips uint64
	poly  int
}{
	{0x1DF52BB7F67963C1, 0},
	{0xC6BF347217919A28, 1},
	{0x6E92CBAA297E9B32, 0},
	{0xA047F0ECE810D8D6, 1},
	{0x4281C313FF285A78, 0},
	{0xD0DF453C2BC2DC3F, 1},
	{0x00008D89158DD342, 0},
}

func TestMatchClean(t *testing.T) {
	m := Default()
	for _, tc := range testCases {
		r, ok := m.Match(tc.chips)
		if !ok {
			t.Fatalf("%016X: no match\n", tc.chips)
		}

		expt := Result{tc.poly, 0, DefaultWindow, 0}
		if r != expt {
			t.Fatalf("%016X: expected %s got %s\n", tc.chips, expt, r)
		}
	}
}

func TestMatchErrors(t *testing.T) {
	m := Default()
	for _, tc := range testCases {
		for _, flips := range []uint64{1 << 10, 1<<10 | 1<<20 | 1<<30} {
			r, ok := m.Match(tc.chips ^ flips)
			if !ok {
				t.Fatalf("%016X: no match\n", tc.chips^flips)
			}
			if r.Polynomial != tc.poly || r.Offset != 0 || r.Window != DefaultWindow {
				t.Fatalf("%016X: unexpected result %s\n", tc.chips^flips, r)
			}
		}
	}
}

// Three garbage chips in front of a clean p1 sequence.
func TestMatchOffset(t *testing.T) {
	r, ok := Default().Match(0xB0B5ABB858151940)
	if !ok {
		t.Fatal("no match")
	}

	expt := Result{1, 3, 44, 0}
	if r != expt {
		t.Fatalf("Expected %s got %s\n", expt, r)
	}

	seed := Seed(0xB0B5ABB858151940, r.Offset)
	if recv := lfsr.Polynomials[1].Advance(lfsr.Reference, 70000); recv != seed {
		t.Fatalf("Expected seed %05X got %05X\n", recv, seed)
	}
}

// Every candidate generates all zeros from a zero seed, so the distances tie
// at every step.
func TestMatchTie(t *testing.T) {
	for _, chips := range []uint64{0, 0xFFFFFFFFFFFFFFFF} {
		if r, ok := Default().Match(chips); ok {
			t.Fatalf("%016X: unexpected match %s\n", chips, r)
		}
	}
}

func TestMatchSingleCandidate(t *testing.T) {
	m := Default()
	m.Candidates = []int{1}

	if _, ok := m.Match(testCases[0].chips); ok {
		t.Fatalf("%016X: p0 sequence matched p1\n", testCases[0].chips)
	}
	if r, ok := m.Match(testCases[1].chips); !ok || r.Polynomial != 1 {
		t.Fatalf("%016X: expected p1 got %s\n", testCases[1].chips, r)
	}
}

type Sequence struct {
	Poly  int
	Chips uint64
}

func (Sequence) Generate(r *rand.Rand, size int) reflect.Value {
	poly := r.Intn(2)
	p := lfsr.Polynomials[poly]
	seed := p.Advance(lfsr.Reference, r.Intn(lfsr.Period))
	return reflect.ValueOf(Sequence{poly, p.Generate(seed, lfsr.MaxGenerate)})
}

func TestMatchGenerated(t *testing.T) {
	m := Default()
	err := quick.Check(func(s Sequence) bool {
		r, ok := m.Match(s.Chips)
		return ok && r == Result{s.Poly, 0, DefaultWindow, 0}
	}, &quick.Config{MaxCount: 256})
	if err != nil {
		t.Fatal("Error matching generated sequence:", err)
	}
}

func TestValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}

	invalid := []func(*Matcher){
		func(m *Matcher) { m.Candidates = nil },
		func(m *Matcher) { m.Candidates = []int{0, len(lfsr.Polynomials)} },
		func(m *Matcher) { m.Window = lfsr.MaxGenerate + 1 },
		func(m *Matcher) { m.Window = 0 },
		func(m *Matcher) { m.MinWindow = 0 },
		func(m *Matcher) { m.Threshold = 0 },
		func(m *Matcher) { m.MaxOffset = -1 },
	}

	for idx, modify := range invalid {
		m := Default()
		modify(&m)
		if err := m.Validate(); !xerrors.Is(err, ErrConfig) {
			t.Fatalf("%d: expected ErrConfig, got %v\n", idx, err)
		}
	}
}

func BenchmarkMatch(b *testing.B) {
	m := Default()

	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		m.Match(0xB0B5ABB858151940)
	}
}
