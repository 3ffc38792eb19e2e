package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT defaults.
const (
	DefaultMQTTQoS       = 1
	DefaultMQTTTimeout   = 10 * time.Second
	DefaultMQTTKeepAlive = 60 * time.Second
)

// MQTTConfig configures an MQTT sink.
type MQTTConfig struct {
	// Broker is the broker URL, e.g. "tcp://localhost:1883".
	Broker string

	// ClientID identifies this client to the broker.
	ClientID string

	// TopicPrefix is prepended to every topic, e.g. "paramtree/cpe-1".
	TopicPrefix string

	// QoS is the publish quality of service, 1 or 2. Zero selects
	// DefaultMQTTQoS; value changes are never sent at most once.
	QoS byte

	// Retained publishes values as retained messages, so a subscriber
	// sees the last value immediately.
	Retained bool

	// Timeout bounds connecting and each publish.
	Timeout time.Duration
}

func (c *MQTTConfig) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultMQTTTimeout
	}
	if c.QoS == 0 {
		c.QoS = DefaultMQTTQoS
	}
	c.TopicPrefix = strings.TrimSuffix(c.TopicPrefix, "/")
}

// MQTTSink publishes each reported value to its own topic. The topic is
// the parameter path with dots replaced by slashes beneath the prefix:
// Device.DeviceInfo.SoftwareVersion is published to
// <prefix>/Device/DeviceInfo/SoftwareVersion.
type MQTTSink struct {
	client mqtt.Client
	config MQTTConfig
}

// NewMQTTSink creates a sink on an existing client.
func NewMQTTSink(client mqtt.Client, config MQTTConfig) *MQTTSink {
	config.applyDefaults()
	return &MQTTSink{client: client, config: config}
}

// DialMQTT connects to the broker and returns a sink. The client
// reconnects automatically; the broker marks the sink lost through a last
// will on <prefix>/$state.
func DialMQTT(config MQTTConfig) (*MQTTSink, error) {
	if config.Broker == "" {
		return nil, errors.New("mqtt: broker is required")
	}
	if config.QoS > 2 {
		return nil, fmt.Errorf("mqtt: invalid QoS %d", config.QoS)
	}
	config.applyDefaults()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetKeepAlive(DefaultMQTTKeepAlive)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(config.Timeout)
	opts.SetOrderMatters(false)
	opts.SetWill(config.TopicPrefix+"/$state", "lost", config.QoS, true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(config.Timeout) {
		return nil, fmt.Errorf("mqtt: connecting to %s timed out", config.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connecting to %s: %w", config.Broker, err)
	}

	s := NewMQTTSink(client, config)
	if err := s.publish(context.Background(), config.TopicPrefix+"/$state", "ready", true); err != nil {
		client.Disconnect(250)
		return nil, err
	}
	return s, nil
}

// Topic returns the topic a parameter path is published to.
func (s *MQTTSink) Topic(path string) string {
	t := strings.ReplaceAll(path, ".", "/")
	if s.config.TopicPrefix == "" {
		return t
	}
	return s.config.TopicPrefix + "/" + t
}

// Publish publishes every report and waits for each to be acknowledged
// according to the QoS. It stops at the first failure.
func (s *MQTTSink) Publish(ctx context.Context, reports []Report) error {
	for _, r := range reports {
		if err := s.publish(ctx, s.Topic(r.Path), r.String(), s.config.Retained); err != nil {
			return fmt.Errorf("mqtt: publishing %s: %w", r.Path, err)
		}
	}
	return nil
}

func (s *MQTTSink) publish(ctx context.Context, topic, payload string, retained bool) error {
	token := s.client.Publish(topic, s.config.QoS, retained, payload)

	timer := time.NewTimer(s.config.Timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("publish to %s timed out", topic)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the sink disconnected and closes the client.
func (s *MQTTSink) Close() error {
	err := s.publish(context.Background(), s.config.TopicPrefix+"/$state", "disconnected", true)
	s.client.Disconnect(250)
	return err
}
