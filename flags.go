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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/bemasher/lighthouse/csv"
)

var captureFilename = flag.String("capture", "", "recorded capture file, .gz and .zst are decompressed")
var configFilename = flag.String("config", "", "yaml configuration file")

var format = flag.String("format", "plain", "location output format: plain, csv or json")
var header = flag.Bool("header", false, "precede csv output with a header row")

var single = flag.Bool("single", false, "one shot execution, exit after the first location pair")
var frameLimit = flag.Int("frames", 0, "number of frames to process, 0 for all")

var metricsAddr = flag.String("metrics", "", "address to serve prometheus metrics on, empty to disable")
var logLevel = flag.String("loglevel", "", "log level: trace, debug, info, warn or error")

var version = flag.Bool("version", false, "display build date and commit hash")

func RegisterFlags() {
	flag.Usage = func() {
		printUsage(os.Stderr, flag.CommandLine)
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage of %s:\n", os.Args[0])
	fs.VisitAll(func(f *flag.Flag) {
		fmt.Fprintf(w, "  --%s=%s: %s\n", f.Name, f.DefValue, f.Usage)
	})
}

// EnvOverride sets each flag from LIGHTHOUSE_<FLAG> when present.
func EnvOverride(log logrus.FieldLogger) {
	flag.VisitAll(func(f *flag.Flag) {
		envName := "LIGHTHOUSE_" + strings.ToUpper(f.Name)
		flagValue := os.Getenv(envName)
		if flagValue == "" {
			return
		}

		fields := logrus.Fields{"env": envName, "flag": f.Name, "value": flagValue}
		if err := flag.Set(f.Name, flagValue); err != nil {
			log.WithFields(fields).WithError(err).Warn("environment variable failed to override flag")
		} else {
			log.WithFields(fields).Info("environment variable overrides flag")
		}
	})
}

// HandleFlags applies flags given on the command line over cfg.
func HandleFlags(cfg *Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "loglevel":
			cfg.Log.Level = *logLevel
		case "metrics":
			cfg.Metrics.Listen = *metricsAddr
		}
	})
}

// JSON and CSV both implement this interface so we can simplify output
// formatting.
type Encoder interface {
	Encode(interface{}) error
}

func NewEncoder(format string, w io.Writer, header bool) (Encoder, error) {
	switch strings.ToLower(format) {
	case "plain":
		return PlainEncoder{w}, nil
	case "csv":
		if header {
			return csv.NewHeaderEncoder(w), nil
		}
		return csv.NewEncoder(w), nil
	case "json":
		return json.NewEncoder(w), nil
	}
	return nil, errors.Errorf("unknown format %q", format)
}

type PlainEncoder struct {
	w io.Writer
}

func (pe PlainEncoder) Encode(msg interface{}) (err error) {
	_, err = fmt.Fprintln(pe.w, msg)
	return
}
