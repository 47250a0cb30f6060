package reporting

import (
	"github.com/gr-butler/weathernode/data"
	"github.com/gr-butler/weathernode/metrics"
	logger "github.com/sirupsen/logrus"
)

type Publisher interface {
	IsConnected() bool
	Publish(topic string, payload string) error
}

// Broker publishes each field on its own topic under base. Nothing is queued
// while the connection is down; those readings are simply lost.
type Broker struct {
	pub   Publisher
	store *data.Store
	base  string
}

func NewBroker(pub Publisher, store *data.Store, base string) *Broker {
	return &Broker{pub: pub, store: store, base: base}
}

type message struct {
	topic   string
	payload string
}

func (b *Broker) messages(r data.Reading) []message {
	return []message{
		{b.base + "/temperature", FormatValue(r.TemperatureF)},
		{b.base + "/humidity", FormatValue(r.HumidityPct)},
		{b.base + "/pressure", FormatValue(r.PressureInHg)},
		{b.base + "/dew_point", FormatValue(r.DewPointF)},
	}
}

// Update publishes the current reading and returns the number of messages
// handed to the broker.
func (b *Broker) Update() int {
	msgs := b.messages(b.store.Latest())
	if !b.pub.IsConnected() {
		logger.Debug("Broker down, dropping reading")
		metrics.BrokerMessages.WithLabelValues("dropped").Add(float64(len(msgs)))
		return 0
	}
	sent := 0
	for _, m := range msgs {
		if err := b.pub.Publish(m.topic, m.payload); err != nil {
			logger.Errorf("Failed to publish [%v] [%v]", m.topic, err)
			metrics.BrokerMessages.WithLabelValues("failed").Inc()
			continue
		}
		sent++
		metrics.BrokerMessages.WithLabelValues("sent").Inc()
	}
	return sent
}
