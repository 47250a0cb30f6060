package mqtt

import (
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gr-butler/weathernode/env"
	logger "github.com/sirupsen/logrus"
)

const (
	connectTimeout = time.Second * 10
	publishTimeout = time.Second * 5
)

var ErrNotConnected = errors.New("mqtt client not connected")

// Client is a thin wrapper over paho. Reconnecting is left to the
// supervisor so paho's own retry is switched off.
type Client struct {
	client paho.Client
	broker string
}

func NewClient(cfg env.MQTT) *Client {
	broker := fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)
	opts := paho.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ paho.Client) {
		logger.Infof("MQTT connected [%v]", broker)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warnf("MQTT connection lost [%v]", err)
	})
	opts.SetDefaultPublishHandler(func(_ paho.Client, m paho.Message) {
		logger.Infof("Processing payload: [%v] [%s]", m.Topic(), m.Payload())
	})

	return &Client{client: paho.NewClient(opts), broker: broker}
}

// Connect makes a single attempt to reach the broker.
func (c *Client) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect to %v timed out", c.broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Publish sends a QoS 0, non retained message.
func (c *Client) Publish(topic string, payload string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %v: %w", topic, err)
	}
	return nil
}

func (c *Client) Disconnect() {
	c.client.Disconnect(250)
	logger.Info("MQTT disconnected")
}
