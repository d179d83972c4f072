package display

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/unklstewy/overhead/pkg/config"
)

// MQTTPublisher is the subset of the paho client used by MQTTSink.
type MQTTPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSink publishes each snapshot as JSON so remote displays can subscribe.
type MQTTSink struct {
	client   MQTTPublisher
	topic    string
	qos      byte
	retained bool
	logger   zerolog.Logger
}

// NewMQTTSink connects to the configured broker.
func NewMQTTSink(cfg config.MQTTDisplayConfig, logger zerolog.Logger) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, token.Error())
	}

	logger.Info().Str("broker", cfg.Broker).Str("topic", cfg.Topic).Msg("Connected to MQTT broker")
	return newMQTTSink(client, cfg, logger), nil
}

func newMQTTSink(client MQTTPublisher, cfg config.MQTTDisplayConfig, logger zerolog.Logger) *MQTTSink {
	return &MQTTSink{
		client:   client,
		topic:    cfg.Topic,
		qos:      byte(cfg.QoS),
		retained: cfg.Retained,
		logger:   logger.With().Str("sink", "mqtt").Logger(),
	}
}

// Deliver publishes snap and waits for the broker to acknowledge it.
func (m *MQTTSink) Deliver(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	token := m.client.Publish(m.topic, m.qos, m.retained, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", m.topic, err)
	}

	m.logger.Debug().Str("cycle", snap.CycleID).Int("bytes", len(payload)).Msg("Published snapshot")
	return nil
}

// Close disconnects from the broker, allowing 250ms for in-flight messages.
func (m *MQTTSink) Close() error {
	m.client.Disconnect(250)
	return nil
}
