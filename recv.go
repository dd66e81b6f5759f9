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

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bemasher/lighthouse/capture"
	"github.com/bemasher/lighthouse/publish"
	"github.com/bemasher/lighthouse/session"
)

const TimeFormat = "2006-01-02T15:04:05.000"

// A LogMessage associates a location pair with a point in time and the
// frame of the recording it was decoded from.
type LogMessage struct {
	Time      time.Time            `json:"time"`
	Frame     int                  `json:"frame"`
	Session   string               `json:"session"`
	Locations session.LocationPair `json:"locations"`
}

func (msg LogMessage) String() string {
	return fmt.Sprintf("{Time:%s Frame:%d Locations:%s}",
		msg.Time.Format(TimeFormat), msg.Frame, msg.Locations,
	)
}

func (msg LogMessage) Header() []string {
	return append([]string{"time", "frame"}, msg.Locations.Header()...)
}

func (msg LogMessage) Record() (r []string) {
	r = append(r, msg.Time.Format(time.RFC3339Nano))
	r = append(r, strconv.Itoa(msg.Frame))
	r = append(r, msg.Locations.Record()...)
	return r
}

type Publisher interface {
	Publish(publish.Payload) error
}

type Stats struct {
	Frames    int
	Located   int
	Discarded int
}

type Receiver struct {
	s   *session.Session
	rd  *capture.Reader
	enc Encoder
	pub Publisher
	log logrus.FieldLogger

	single bool
	limit  int
	now    func() time.Time

	Stats
}

func NewReceiver(s *session.Session, rd *capture.Reader, enc Encoder, log logrus.FieldLogger) *Receiver {
	return &Receiver{
		s:   s,
		rd:  rd,
		enc: enc,
		log: log,
		now: time.Now,
	}
}

type frameResult struct {
	frame capture.Frame
	err   error
}

// Run decodes frames until the recording ends, the frame limit is reached
// or ctx is cancelled.
func (rcvr *Receiver) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frameCh := make(chan frameResult)

	// Read frames in the background so cancellation doesn't wait on a read.
	go func() {
		defer close(frameCh)

		for {
			f, err := rcvr.rd.Next()
			select {
			case frameCh <- frameResult{f, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	defer func() {
		rcvr.log.WithFields(logrus.Fields{
			"frames":    rcvr.Frames,
			"located":   rcvr.Located,
			"discarded": rcvr.Discarded,
		}).Info("done")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case res, ok := <-frameCh:
			if !ok {
				return nil
			}

			if res.err == io.EOF {
				return nil
			}
			if res.err != nil {
				return res.err
			}

			located, err := rcvr.Process(res.frame)
			if err != nil {
				return err
			}

			if located && rcvr.single {
				return nil
			}
			if rcvr.limit > 0 && rcvr.Frames >= rcvr.limit {
				return nil
			}
		}
	}
}

// Process runs a single frame through the session. Frames that fail to
// decode are counted and skipped, only output errors are returned.
func (rcvr *Receiver) Process(f capture.Frame) (located bool, err error) {
	frame := rcvr.Frames
	rcvr.Frames++

	log := rcvr.log.WithField("frame", frame)

	rcvr.s.Start()
	for receiver := range f {
		if err := rcvr.s.Deliver(receiver, f[receiver][:]); err != nil {
			return false, errors.Wrapf(err, "frame %d", frame)
		}
	}

	if _, err := rcvr.s.TryAdvance(); err != nil {
		log.WithError(err).Debug("discarded")
		rcvr.Discarded++
		return false, nil
	}

	lp, err := rcvr.s.ProcessLocation()
	if err != nil {
		log.WithError(err).Warn("discarded")
		rcvr.Discarded++
		return false, nil
	}
	rcvr.Located++

	now := rcvr.now()

	msg := LogMessage{
		Time:      now,
		Frame:     frame,
		Session:   rcvr.s.ID.String(),
		Locations: lp,
	}
	if err := rcvr.enc.Encode(msg); err != nil {
		return true, errors.Wrap(err, "encode")
	}

	if rcvr.pub != nil {
		if err := rcvr.pub.Publish(publish.NewPayload(rcvr.s.ID, frame, now, lp)); err != nil {
			log.WithError(err).Warn("publish")
		}
	}

	return true, nil
}
