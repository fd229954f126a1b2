package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"memberhub/internal/config"
	"memberhub/internal/domain"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// ActivityPublisher receives community activity for external consumers.
type ActivityPublisher interface {
	Publish(ctx context.Context, a domain.Activity) error
	Close()
}

// Noop drops activity when the bridge is disabled.
type Noop struct{}

func (Noop) Publish(context.Context, domain.Activity) error { return nil }
func (Noop) Close()                                         {}

// pahoClient is the subset of paho.Client the publisher needs.
type pahoClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Publisher sends activity JSON to <prefix>/<kind> at QoS 1.
type Publisher struct {
	client  pahoClient
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

// Connect dials the broker and returns a ready publisher.
func Connect(cfg *config.MQTTConfig, logger *zap.Logger) (*Publisher, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	logger.Info("mqtt activity bridge connected", zap.String("broker", cfg.Broker))
	return newPublisher(client, cfg.TopicPrefix, logger), nil
}

func newPublisher(client pahoClient, prefix string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:  client,
		prefix:  strings.TrimRight(prefix, "/"),
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

func (p *Publisher) Topic(kind domain.ActivityKind) string {
	return p.prefix + "/" + string(kind)
}

func (p *Publisher) Publish(ctx context.Context, a domain.Activity) error {
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode activity: %w", err)
	}
	topic := p.Topic(a.Kind)
	token := p.client.Publish(topic, 1, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return fmt.Errorf("publish to topic %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	p.logger.Debug("activity published", zap.String("topic", topic))
	return nil
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
