// Package supervisor keeps the broker connection up.
//
// It is a two state machine, Connected and Disconnected, polled from the
// main loop. When the broker is found down the poll retries the connection
// with a fixed delay until it succeeds. The loop, and everything it drives,
// waits meanwhile. There is no backoff and no retry limit.
package supervisor

import (
	"context"
	"time"

	"github.com/gr-butler/weathernode/metrics"
	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
)

type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

type Broker interface {
	IsConnected() bool
	Connect() error
}

type Supervisor struct {
	broker   Broker
	clock    clockwork.Clock
	delay    time.Duration
	state    State
	attempts int
}

func New(broker Broker, clock clockwork.Clock, delay time.Duration) *Supervisor {
	return &Supervisor{
		broker: broker,
		clock:  clock,
		delay:  delay,
		state:  Disconnected,
	}
}

func (s *Supervisor) State() State {
	return s.state
}

// Attempts is the number of connect attempts made so far.
func (s *Supervisor) Attempts() int {
	return s.attempts
}

// Poll returns straight away while the broker is connected. Otherwise it
// blocks until a connect attempt succeeds. Only ctx ending, at process
// shutdown, stops the retries early.
func (s *Supervisor) Poll(ctx context.Context) error {
	if s.broker.IsConnected() {
		s.state = Connected
		return nil
	}
	if s.state == Connected {
		logger.Warn("Broker connection lost")
	}
	s.state = Disconnected

	for {
		logger.Info("Attempting MQTT connection...")
		s.attempts++
		err := s.broker.Connect()
		if err == nil {
			metrics.ConnectAttempts.WithLabelValues("ok").Inc()
			logger.Info("MQTT connected")
			s.state = Connected
			return nil
		}
		metrics.ConnectAttempts.WithLabelValues("failed").Inc()
		logger.Errorf("MQTT connect failed [%v], try again in [%v]", err, s.delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.delay):
		}
	}
}
