package session

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bemasher/lighthouse/demod"
	"github.com/bemasher/lighthouse/gen"
	"github.com/bemasher/lighthouse/lfsr"
	"github.com/bemasher/lighthouse/match"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/xerrors"
)

// Chip sequences generated from known locations.
var (
	p0At500   = gen.Capture(0x6E92CBAA297E9B32, demod.ChipBits)
	p1At100   = gen.Capture(0xA047F0ECE810D8D6, demod.ChipBits)
	p0At1000  = gen.Capture(0x1DF52BB7F67963C1, demod.ChipBits)
	p1At50000 = gen.Capture(0xC6BF347217919A28, demod.ChipBits)

	// Three garbage chips ahead of p1 at 70000.
	p1Offset = gen.Capture(0xB0B5ABB858151940, demod.ChipBits)

	overflow = bytes.Repeat([]byte{0xAA}, demod.BufferSize)
	silence  = make([]byte, demod.BufferSize)
)

func newTestSession(t *testing.T) (*Session, *test.Hook, *prometheus.Registry) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	reg := prometheus.NewRegistry()

	s, err := New(match.Default())
	if err != nil {
		t.Fatal(err)
	}
	s.Log = logger.WithField("session", s.ID.String())
	s.Metrics = NewMetrics(reg)

	return s, hook, reg
}

func deliver(t *testing.T, s *Session, captures ...[]byte) {
	t.Helper()
	for receiver, buf := range captures {
		if err := s.Deliver(receiver, buf); err != nil {
			t.Fatalf("receiver %d: %+v\n", receiver, err)
		}
	}
}

func TestStateString(t *testing.T) {
	for state, expt := range []string{"Idle", "Running", "RawDataReady", "LocationReady"} {
		if recv := State(state).String(); recv != expt {
			t.Fatalf("Expected %q got %q\n", expt, recv)
		}
	}
	if recv := State(7).String(); recv != "State(7)" {
		t.Fatalf("Expected %q got %q\n", "State(7)", recv)
	}
}

func TestEndToEnd(t *testing.T) {
	s, _, reg := newTestSession(t)

	if s.State() != Idle {
		t.Fatalf("Expected Idle got %s\n", s.State())
	}

	s.Start()
	deliver(t, s, p0At1000, p1At50000)

	state, err := s.TryAdvance()
	if err != nil {
		t.Fatal(err)
	}
	if state != RawDataReady {
		t.Fatalf("Expected RawDataReady got %s\n", state)
	}

	lp, err := s.ProcessLocation()
	if err != nil {
		t.Fatal(err)
	}

	expt := LocationPair{{0, 1000}, {1, 50000}}
	if lp != expt {
		t.Fatalf("Expected %s got %s\n", expt, lp)
	}
	if s.State() != LocationReady {
		t.Fatalf("Expected LocationReady got %s\n", s.State())
	}

	if recv, ok := s.Location(); !ok || recv != expt {
		t.Fatalf("Expected %s got %s\n", expt, recv)
	}

	for idx, sweep := range s.Sweeps() {
		if sweep.Match.Polynomial != expt[idx].Polynomial || sweep.Match.Errors != 0 {
			t.Fatalf("sweep %d: unexpected match %s\n", idx, sweep.Match)
		}
	}

	if recv := testutil.ToFloat64(s.Metrics.windows.WithLabelValues(OutcomeMatched)); recv != 1 {
		t.Fatalf("Expected 1 matched window got %f\n", recv)
	}
	if recv := testutil.ToFloat64(s.Metrics.location.WithLabelValues("1")); recv != 50000 {
		t.Fatalf("Expected slot 1 location 50000 got %f\n", recv)
	}

	if n, err := testutil.GatherAndCount(reg, "lighthouse_locations_total"); err != nil || n != 1 {
		t.Fatalf("Expected 1 series got %d: %v\n", n, err)
	}
}

// Receiver 0 sees the later location so the pair is swapped.
func TestLocationOrder(t *testing.T) {
	s, _, _ := newTestSession(t)

	s.Start()
	deliver(t, s, p0At500, p1At100)

	if _, err := s.TryAdvance(); err != nil {
		t.Fatal(err)
	}

	lp, err := s.ProcessLocation()
	if err != nil {
		t.Fatal(err)
	}

	expt := LocationPair{{1, 100}, {0, 500}}
	if lp != expt {
		t.Fatalf("Expected %s got %s\n", expt, lp)
	}
}

func TestLocationOffset(t *testing.T) {
	s, _, _ := newTestSession(t)

	s.Start()
	deliver(t, s, p1Offset, p0At500)

	if _, err := s.TryAdvance(); err != nil {
		t.Fatal(err)
	}

	if sweep := s.Sweeps()[0]; sweep.Match.Offset != 3 {
		t.Fatalf("Expected offset 3 got %s\n", sweep.Match)
	}

	lp, err := s.ProcessLocation()
	if err != nil {
		t.Fatal(err)
	}

	expt := LocationPair{{0, 500}, {1, 69997}}
	if lp != expt {
		t.Fatalf("Expected %s got %s\n", expt, lp)
	}
}

func TestProcessLocationNotReady(t *testing.T) {
	s, _, _ := newTestSession(t)

	for _, prepare := range []func(){
		func() {},
		s.Start,
		func() { deliver(t, s, p0At500) },
	} {
		prepare()
		before := s.State()

		if _, err := s.ProcessLocation(); !xerrors.Is(err, ErrNotReady) {
			t.Fatalf("%s: expected ErrNotReady got %v\n", before, err)
		}
		if s.State() != before {
			t.Fatalf("Expected %s got %s\n", before, s.State())
		}
	}
}

func TestTryAdvanceWaits(t *testing.T) {
	s, _, _ := newTestSession(t)

	if state, err := s.TryAdvance(); state != Idle || err != nil {
		t.Fatalf("Expected Idle got %s: %v\n", state, err)
	}

	s.Start()
	deliver(t, s, p0At500)

	if state, err := s.TryAdvance(); state != Running || err != nil {
		t.Fatalf("Expected Running got %s: %v\n", state, err)
	}
}

func TestNoMatch(t *testing.T) {
	s, hook, reg := newTestSession(t)

	s.Start()
	deliver(t, s, p0At500, silence)

	state, err := s.TryAdvance()
	if !xerrors.Is(err, ErrNoMatch) {
		t.Fatalf("Expected ErrNoMatch got %v\n", err)
	}
	if state != Running {
		t.Fatalf("Expected Running got %s\n", state)
	}

	if recv := testutil.ToFloat64(s.Metrics.windows.WithLabelValues(OutcomeNoMatch)); recv != 1 {
		t.Fatalf("Expected 1 unmatched window got %f\n", recv)
	}

	// Receiver 0 matched but the window was discarded, so no match errors
	// are recorded for it.
	expt := `
# HELP lighthouse_match_errors Bit errors in the comparison window of accepted matches
# TYPE lighthouse_match_errors histogram
lighthouse_match_errors_bucket{le="0"} 0
lighthouse_match_errors_bucket{le="1"} 0
lighthouse_match_errors_bucket{le="2"} 0
lighthouse_match_errors_bucket{le="3"} 0
lighthouse_match_errors_bucket{le="4"} 0
lighthouse_match_errors_bucket{le="+Inf"} 0
lighthouse_match_errors_sum 0
lighthouse_match_errors_count 0
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expt), "lighthouse_match_errors"); err != nil {
		t.Fatal(err)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Data["receiver"] != 1 {
		t.Fatalf("Expected log entry for receiver 1 got %+v\n", entry)
	}

	// The window was discarded so both receivers can deliver again.
	deliver(t, s, p0At500, p1At100)
	if state, err := s.TryAdvance(); state != RawDataReady || err != nil {
		t.Fatalf("Expected RawDataReady got %s: %v\n", state, err)
	}
}

func TestOverflow(t *testing.T) {
	s, _, _ := newTestSession(t)

	s.Start()
	deliver(t, s, overflow, p1At100)

	state, err := s.TryAdvance()
	if !xerrors.Is(err, demod.ErrOverflow) {
		t.Fatalf("Expected ErrOverflow got %v\n", err)
	}
	if state != Running {
		t.Fatalf("Expected Running got %s\n", state)
	}
	if recv := testutil.ToFloat64(s.Metrics.windows.WithLabelValues(OutcomeOverflow)); recv != 1 {
		t.Fatalf("Expected 1 overflowed window got %f\n", recv)
	}
}

func TestDeliverGating(t *testing.T) {
	s, _, _ := newTestSession(t)

	if err := s.Deliver(0, p0At500); !xerrors.Is(err, ErrNotRunning) {
		t.Fatalf("Expected ErrNotRunning got %v\n", err)
	}

	s.Start()

	for _, receiver := range []int{-1, Receivers} {
		if err := s.Deliver(receiver, p0At500); !xerrors.Is(err, ErrReceiver) {
			t.Fatalf("Expected ErrReceiver got %v\n", err)
		}
	}

	if err := s.Deliver(0, p0At500[:10]); !xerrors.Is(err, demod.ErrBufferSize) {
		t.Fatalf("Expected ErrBufferSize got %v\n", err)
	}

	deliver(t, s, p0At500)
	if err := s.Deliver(0, p1At100); !xerrors.Is(err, ErrCaptureBusy) {
		t.Fatalf("Expected ErrCaptureBusy got %v\n", err)
	}

	if err := s.Deliver(1, p1At100); err != nil {
		t.Fatal(err)
	}
	if _, err := s.TryAdvance(); err != nil {
		t.Fatal(err)
	}

	// Raw data is held until it has been located.
	if err := s.Deliver(0, p0At500); !xerrors.Is(err, ErrCaptureBusy) {
		t.Fatalf("Expected ErrCaptureBusy got %v\n", err)
	}

	if _, err := s.ProcessLocation(); err != nil {
		t.Fatal(err)
	}
	if err := s.Deliver(0, p0At500); !xerrors.Is(err, ErrNotRunning) {
		t.Fatalf("Expected ErrNotRunning got %v\n", err)
	}

	s.Start()
	deliver(t, s, p0At500, p1At100)
}

func TestDeliverCopies(t *testing.T) {
	s, _, _ := newTestSession(t)
	s.Start()

	buf := append([]byte(nil), p0At500...)
	deliver(t, s, buf, p1At100)
	copy(buf, silence)

	if _, err := s.TryAdvance(); err != nil {
		t.Fatal(err)
	}
}

// A zero seed never lies on the cycle.
func TestLocateFailure(t *testing.T) {
	s, hook, reg := newTestSession(t)

	s.Start()
	s.sweeps[1] = Sweep{Chips: 0, Match: match.Result{Polynomial: 0, Window: match.DefaultWindow}}
	s.state = RawDataReady

	_, err := s.ProcessLocation()
	if !xerrors.Is(err, lfsr.ErrUnreachable) {
		t.Fatalf("Expected ErrUnreachable got %v\n", err)
	}
	if s.State() != Running {
		t.Fatalf("Expected Running got %s\n", s.State())
	}
	if _, ok := s.Location(); ok {
		t.Fatal("unexpected location after failure")
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("Expected warning got %+v\n", entry)
	}

	expt := `
# HELP lighthouse_locate_failures_total Matched seeds that could not be located on their polynomial
# TYPE lighthouse_locate_failures_total counter
lighthouse_locate_failures_total 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expt), "lighthouse_locate_failures_total"); err != nil {
		t.Fatal(err)
	}
}

func TestReset(t *testing.T) {
	s, _, _ := newTestSession(t)

	s.Start()
	deliver(t, s, p0At500, p1At100)
	s.TryAdvance()
	s.ProcessLocation()

	s.Reset()
	if s.State() != Running {
		t.Fatalf("Expected Running got %s\n", s.State())
	}
	if lp, ok := s.Location(); ok || lp != (LocationPair{}) {
		t.Fatalf("Expected no location got %s\n", lp)
	}

	// Capture is rearmed without Start.
	deliver(t, s, p0At1000, p1At50000)
	if state, err := s.TryAdvance(); state != RawDataReady || err != nil {
		t.Fatalf("Expected RawDataReady got %s: %v\n", state, err)
	}

	s.Stop()
	if s.State() != Idle {
		t.Fatalf("Expected Idle got %s\n", s.State())
	}
	if err := s.Deliver(0, p0At500); !xerrors.Is(err, ErrNotRunning) {
		t.Fatalf("Expected ErrNotRunning got %v\n", err)
	}
}

// The location is only visible while the session is LocationReady.
func TestLocationVisibility(t *testing.T) {
	s, _, _ := newTestSession(t)

	s.Start()
	deliver(t, s, p0At500, p1At100)
	s.TryAdvance()
	if _, err := s.ProcessLocation(); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Location(); !ok {
		t.Fatal("Expected location while LocationReady")
	}

	for _, leave := range []func(){s.Start, s.Stop} {
		s.Start()
		deliver(t, s, p0At500, p1At100)
		s.TryAdvance()
		s.ProcessLocation()

		leave()
		if lp, ok := s.Location(); ok {
			t.Fatalf("%s: unexpected location %s\n", s.State(), lp)
		}
	}
}

func TestNewInvalidMatcher(t *testing.T) {
	m := match.Default()
	m.Candidates = []int{0, len(lfsr.Polynomials)}

	s, err := New(m)
	if !xerrors.Is(err, match.ErrConfig) {
		t.Fatalf("Expected ErrConfig got %v\n", err)
	}
	if s != nil {
		t.Fatal("Expected nil session")
	}
}

func TestLocationPairRecord(t *testing.T) {
	lp := LocationPair{{1, 100}, {0, 500}}

	recv := strings.Join(lp.Record(), ",")
	if expt := "1,100,0,500"; recv != expt {
		t.Fatalf("Expected %q got %q\n", expt, recv)
	}

	if recv := lp.String(); recv != "{{Polynomial:1 Location:   100} {Polynomial:0 Location:   500}}" {
		t.Fatalf("unexpected string %q\n", recv)
	}
}

func BenchmarkWindow(b *testing.B) {
	s, err := New(match.Default())
	if err != nil {
		b.Fatal(err)
	}
	s.Log = logrus.New()

	b.SetBytes(Receivers * demod.BufferSize)
	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		s.Start()
		s.Deliver(0, p0At1000)
		s.Deliver(1, p1At50000)
		s.TryAdvance()
		s.ProcessLocation()
	}
}
