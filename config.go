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
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/bemasher/lighthouse/match"
	"github.com/bemasher/lighthouse/publish"
)

type Config struct {
	Matcher match.Matcher `yaml:"matcher"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type MQTTConfig struct {
	Enabled        bool `yaml:"enabled"`
	publish.Config `yaml:",inline"`
}

func DefaultConfig() Config {
	return Config{
		Matcher: match.Default(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		MQTT: MQTTConfig{
			Config: publish.Config{
				Topic:   "lighthouse/location",
				Timeout: 10 * time.Second,
			},
		},
	}
}

// LoadConfig reads a YAML config, fields missing from the file keep their
// defaults.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", filename)
	}

	return cfg, cfg.Validate()
}

func (cfg Config) Validate() error {
	if err := cfg.Matcher.Validate(); err != nil {
		return errors.Wrap(err, "matcher")
	}

	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return errors.Wrap(err, "log")
	}

	switch cfg.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("log: unknown format %q", cfg.Log.Format)
	}

	if cfg.MQTT.Enabled {
		if err := cfg.MQTT.Config.Validate(); err != nil {
			return errors.Wrap(err, "mqtt")
		}
	}

	return nil
}

// Logger builds the logger described by the log section.
func (cfg LogConfig) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger, nil
}
