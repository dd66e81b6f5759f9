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

// Package session sequences capture, decode and location of sweep pairs.
//
// A session alternates between accepting raw captures and decoding them.
// Captures are only accepted while the session is Running and each receiver
// slot is filled at most once, so a buffer is never overwritten while it is
// being decoded. A Session is not safe for concurrent use.
package session

import (
	"errors"
	"strconv"

	"github.com/bemasher/lighthouse/demod"
	"github.com/bemasher/lighthouse/match"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Receivers is the number of photodiodes captured per window.
const Receivers = 2

var (
	ErrCaptureBusy = errors.New("session: capture buffer busy")
	ErrNotRunning  = errors.New("session: capture not armed")
	ErrReceiver    = errors.New("session: invalid receiver")
	ErrNotReady    = errors.New("session: raw data not ready")
	ErrNoMatch     = errors.New("session: no polynomial match")
)

type State int

const (
	Idle State = iota
	Running
	RawDataReady
	LocationReady
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case RawDataReady:
		return "RawDataReady"
	case LocationReady:
		return "LocationReady"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// A Session owns the raw capture buffers for both receivers and the results
// decoded from them.
type Session struct {
	ID uuid.UUID

	// Log defaults to the standard logrus logger.
	Log logrus.FieldLogger

	// Metrics may be nil.
	Metrics *Metrics

	matcher match.Matcher
	state   State

	raw    [Receivers][demod.BufferSize]byte
	filled [Receivers]bool
	sweeps [Receivers]Sweep

	location LocationPair
}

// New returns an Idle session searching with m. The matcher is validated
// since an unknown candidate polynomial can't be searched.
func New(m match.Matcher) (*Session, error) {
	if err := m.Validate(); err != nil {
		return nil, xerrors.Errorf("matcher: %w", err)
	}

	id := uuid.New()
	return &Session{
		ID:      id,
		Log:     logrus.WithField("session", id.String()),
		matcher: m,
	}, nil
}

func (s *Session) State() State { return s.state }

// Sweeps returns the sweeps decoded from the most recent window.
func (s *Session) Sweeps() [Receivers]Sweep { return s.sweeps }

// Location returns the location pair of the current window, ok is false
// unless the session is LocationReady.
func (s *Session) Location() (lp LocationPair, ok bool) {
	if s.state != LocationReady {
		return LocationPair{}, false
	}
	return s.location, true
}

// clear discards raw captures and sweeps.
func (s *Session) clear() {
	s.filled = [Receivers]bool{}
	s.sweeps = [Receivers]Sweep{}
}

// Start arms capture from any state.
func (s *Session) Start() {
	s.clear()
	s.state = Running
}

// Stop disarms capture. It is the only way back to Idle.
func (s *Session) Stop() {
	s.clear()
	s.state = Idle
}

// Reset discards the current window and its location and rearms capture.
// Failed windows are reset this way.
func (s *Session) Reset() {
	s.clear()
	s.location = LocationPair{}
	s.state = Running
}

// Deliver copies a raw capture into the receiver's buffer.
func (s *Session) Deliver(receiver int, buf []byte) error {
	if receiver < 0 || receiver >= Receivers {
		return xerrors.Errorf("receiver %d: %w", receiver, ErrReceiver)
	}

	switch s.state {
	case Running:
	case RawDataReady:
		return ErrCaptureBusy
	default:
		return xerrors.Errorf("%s: %w", s.state, ErrNotRunning)
	}

	if s.filled[receiver] {
		return xerrors.Errorf("receiver %d: %w", receiver, ErrCaptureBusy)
	}

	if len(buf) != demod.BufferSize {
		return xerrors.Errorf("receiver %d: %d bytes: %w", receiver, len(buf), demod.ErrBufferSize)
	}

	copy(s.raw[receiver][:], buf)
	s.filled[receiver] = true

	return nil
}

// TryAdvance decodes and matches both captures once they have been
// delivered. Any failure discards the window and leaves the session Running,
// the returned error says why.
func (s *Session) TryAdvance() (State, error) {
	if s.state != Running || s.filled != [Receivers]bool{true, true} {
		return s.state, nil
	}

	for receiver := range s.raw {
		sweep, err := s.decode(receiver)
		if err != nil {
			s.Reset()
			return s.state, err
		}
		s.sweeps[receiver] = sweep
	}

	s.state = RawDataReady
	s.Metrics.window(OutcomeMatched)
	for _, sweep := range s.sweeps {
		s.Metrics.matched(sweep.Match.Errors)
	}

	return s.state, nil
}

func (s *Session) decode(receiver int) (sweep Sweep, err error) {
	log := s.Log.WithField("receiver", receiver)

	sweep.Chips, err = demod.Demodulate(s.raw[receiver][:])
	if err != nil {
		log.WithError(err).Debug("demodulate")
		s.Metrics.window(OutcomeOverflow)
		return sweep, xerrors.Errorf("receiver %d: %w", receiver, err)
	}

	var ok bool
	sweep.Match, ok = s.matcher.Match(sweep.Chips)
	if !ok {
		log.WithField("chips", sweep.Chips).Debug("no match")
		s.Metrics.window(OutcomeNoMatch)
		return sweep, xerrors.Errorf("receiver %d: chips 0x%016X: %w", receiver, sweep.Chips, ErrNoMatch)
	}

	log.WithFields(logrus.Fields{
		"polynomial": sweep.Match.Polynomial,
		"offset":     sweep.Match.Offset,
		"window":     sweep.Match.Window,
		"errors":     sweep.Match.Errors,
	}).Debug("matched")

	return sweep, nil
}

// ProcessLocation locates both sweeps and orders the pair by ascending
// location. It is only valid in RawDataReady, otherwise ErrNotReady is
// returned and the session is left untouched. A seed that cannot be located
// discards the window and returns the session to Running.
func (s *Session) ProcessLocation() (LocationPair, error) {
	if s.state != RawDataReady {
		return LocationPair{}, xerrors.Errorf("%s: %w", s.state, ErrNotReady)
	}

	var lp LocationPair
	for receiver, sweep := range s.sweeps {
		l, err := sweep.locate()
		if err != nil {
			s.Log.WithError(err).WithField("receiver", receiver).Warn("locate")
			s.Metrics.locateFailed()
			s.Reset()
			return LocationPair{}, xerrors.Errorf("receiver %d: %w", receiver, err)
		}
		lp[receiver] = l
	}

	s.location = lp.ordered()
	s.state = LocationReady
	s.Metrics.located(s.location)

	s.Log.WithField("location", s.location).Debug("located")

	return s.location, nil
}
