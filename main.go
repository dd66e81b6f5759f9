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
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/bemasher/lighthouse/capture"
	"github.com/bemasher/lighthouse/publish"
	"github.com/bemasher/lighthouse/session"
)

var (
	buildTag   = "dev"     // v#.#.#
	buildDate  = "unknown" // date -u '+%Y-%m-%d'
	commitHash = "unknown" // git rev-parse HEAD
)

// serveMetrics exposes reg on addr until the process exits.
func serveMetrics(addr string, reg *prometheus.Registry, log logrus.FieldLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		log.WithField("addr", addr).Info("serving metrics")
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.WithError(err).Error("metrics server")
		}
	}()
}

func main() {
	RegisterFlags()
	EnvOverride(logrus.StandardLogger())
	flag.Parse()

	if *version {
		fmt.Println("Build Tag: ", buildTag)
		fmt.Println("Build Date:", buildDate)
		fmt.Println("Commit:    ", commitHash)
		os.Exit(0)
	}

	cfg := DefaultConfig()
	if *configFilename != "" {
		var err error
		if cfg, err = LoadConfig(*configFilename); err != nil {
			logrus.Fatalf("%+v", err)
		}
	}
	HandleFlags(&cfg)

	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("%+v", err)
	}

	logger, err := cfg.Log.Logger()
	if err != nil {
		logrus.Fatalf("%+v", err)
	}

	if *captureFilename == "" {
		flag.Usage()
		logger.Fatal("no capture file given")
	}

	enc, err := NewEncoder(*format, os.Stdout, *header)
	if err != nil {
		logger.Fatal(err)
	}

	s, err := session.New(cfg.Matcher)
	if err != nil {
		logger.Fatalf("%+v", err)
	}
	log := logger.WithField("session", s.ID.String())
	s.Log = log

	if cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		s.Metrics = session.NewMetrics(reg)
		serveMetrics(cfg.Metrics.Listen, reg, log)
	}

	rd, err := capture.Open(*captureFilename)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	defer rd.Close()

	rcvr := NewReceiver(s, rd, enc, log)
	rcvr.single = *single
	rcvr.limit = *frameLimit

	if cfg.MQTT.Enabled {
		pub, err := publish.NewPublisher(cfg.MQTT.Config, log)
		if err != nil {
			log.Fatalf("%+v", err)
		}
		defer pub.Close()
		rcvr.pub = pub
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rcvr.Run(ctx); err != nil {
		log.Errorf("%+v", err)
		stop()
		os.Exit(1)
	}
}
