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

// Package publish pushes location pairs to an MQTT broker as JSON.
package publish

import (
	"encoding/json"
	"errors"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/bemasher/lighthouse/session"
)

var (
	ErrTimeout = errors.New("publish: timed out waiting for broker")
	ErrConfig  = errors.New("publish: invalid configuration")
)

type Config struct {
	Broker   string        `yaml:"broker"`
	Topic    string        `yaml:"topic"`
	ClientID string        `yaml:"clientid"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	QoS      byte          `yaml:"qos"`
	Retain   bool          `yaml:"retain"`
	Timeout  time.Duration `yaml:"timeout"`
}

func (cfg Config) Validate() error {
	switch {
	case cfg.Broker == "":
		return xerrors.Errorf("no broker: %w", ErrConfig)
	case cfg.Topic == "":
		return xerrors.Errorf("no topic: %w", ErrConfig)
	case cfg.QoS > 2:
		return xerrors.Errorf("qos %d: %w", cfg.QoS, ErrConfig)
	}
	return nil
}

// Payload is the JSON document published for each location pair.
type Payload struct {
	Session   string             `json:"session"`
	Time      time.Time          `json:"time"`
	Frame     int                `json:"frame"`
	Locations []session.Location `json:"locations"`
}

func NewPayload(id uuid.UUID, frame int, t time.Time, lp session.LocationPair) Payload {
	return Payload{
		Session:   id.String(),
		Time:      t.UTC(),
		Frame:     frame,
		Locations: lp[:],
	}
}

// client is the part of mqtt.Client a Publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type Publisher struct {
	cfg    Config
	client client
	log    logrus.FieldLogger
}

// NewPublisher connects to the configured broker.
func NewPublisher(cfg Config, log logrus.FieldLogger) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "lighthouse_" + uuid.New().String()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	log = log.WithFields(logrus.Fields{"broker": cfg.Broker, "topic": cfg.Topic})

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info("connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.WithError(err).Warn("connection lost")
	})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, xerrors.Errorf("connect %s: %w", cfg.Broker, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, xerrors.Errorf("connect %s: %w", cfg.Broker, err)
	}

	return &Publisher{cfg, c, log}, nil
}

// Publish sends p and waits for the broker to acknowledge it.
func (pub *Publisher) Publish(p Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return xerrors.Errorf("marshal: %w", err)
	}

	token := pub.client.Publish(pub.cfg.Topic, pub.cfg.QoS, pub.cfg.Retain, data)
	if !token.WaitTimeout(pub.cfg.Timeout) {
		return xerrors.Errorf("frame %d: %w", p.Frame, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return xerrors.Errorf("frame %d: %w", p.Frame, err)
	}

	pub.log.WithField("frame", p.Frame).Debug("published")

	return nil
}

func (pub *Publisher) Close() {
	pub.client.Disconnect(250)
}
