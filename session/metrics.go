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
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Window outcomes.
const (
	OutcomeMatched  = "matched"
	OutcomeOverflow = "overflow"
	OutcomeNoMatch  = "nomatch"
)

// Metrics holds the collectors a session reports to. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	windows        *prometheus.CounterVec // Capture windows by outcome
	matchErrors    prometheus.Histogram   // Bit errors of accepted matches
	locations      prometheus.Counter     // Location pairs produced
	locateFailures prometheus.Counter     // Seeds that could not be located
	location       *prometheus.GaugeVec   // Last location by slot
	polynomial     *prometheus.GaugeVec   // Last polynomial by slot
}

// NewMetrics registers session collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		windows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lighthouse_windows_total",
				Help: "Capture windows processed by outcome",
			},
			[]string{"outcome"},
		),
		matchErrors: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lighthouse_match_errors",
				Help:    "Bit errors in the comparison window of accepted matches",
				Buckets: prometheus.LinearBuckets(0, 1, 5),
			},
		),
		locations: f.NewCounter(
			prometheus.CounterOpts{
				Name: "lighthouse_locations_total",
				Help: "Location pairs computed",
			},
		),
		locateFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: "lighthouse_locate_failures_total",
				Help: "Matched seeds that could not be located on their polynomial",
			},
		),
		location: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lighthouse_location",
				Help: "Most recent location by slot",
			},
			[]string{"slot"},
		),
		polynomial: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lighthouse_polynomial",
				Help: "Polynomial of the most recent location by slot",
			},
			[]string{"slot"},
		),
	}
}

func (m *Metrics) window(outcome string) {
	if m == nil {
		return
	}
	m.windows.WithLabelValues(outcome).Inc()
}

func (m *Metrics) matched(errors int) {
	if m == nil {
		return
	}
	m.matchErrors.Observe(float64(errors))
}

func (m *Metrics) locateFailed() {
	if m == nil {
		return
	}
	m.locateFailures.Inc()
}

func (m *Metrics) located(lp LocationPair) {
	if m == nil {
		return
	}

	m.locations.Inc()
	for slot, l := range lp {
		label := strconv.Itoa(slot)
		m.location.WithLabelValues(label).Set(float64(l.Location))
		m.polynomial.WithLabelValues(label).Set(float64(l.Polynomial))
	}
}
