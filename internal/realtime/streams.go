package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const DefaultStream = "memberhub:messages"

// StreamBroadcaster appends envelopes to a Redis stream so every instance
// can deliver them to its own sockets.
type StreamBroadcaster struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamBroadcaster(client *redis.Client, stream string) *StreamBroadcaster {
	return &StreamBroadcaster{client: client, stream: stream, maxLen: 10000}
}

func (b *StreamBroadcaster) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":      string(data),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", b.stream, err)
	}
	return nil
}

// StreamConsumer reads the stream through a consumer group owned by this
// instance and hands each envelope to the local hub.
type StreamConsumer struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	deliver  func(Envelope) int
	logger   *zap.Logger
	block    time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewStreamConsumer(client *redis.Client, stream, instanceID string, hub *Hub, logger *zap.Logger) *StreamConsumer {
	return &StreamConsumer{
		client:   client,
		stream:   stream,
		group:    "memberhub-" + instanceID,
		consumer: instanceID,
		deliver:  hub.Deliver,
		logger:   logger,
		block:    2 * time.Second,
	}
}

// ensureGroup creates the group at "$" so a fresh instance only sees new events.
func (c *StreamConsumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", c.group, err)
	}
	return nil
}

// Start creates the group and launches the read loop.
func (c *StreamConsumer) Start(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(runCtx)
	}()
	c.logger.Info("realtime stream consumer started", zap.String("stream", c.stream), zap.String("group", c.group))
	return nil
}

// Stop ends the read loop and removes this instance's group.
func (c *StreamConsumer) Stop(ctx context.Context) {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.wg.Wait()
	if err := c.client.XGroupDestroy(ctx, c.stream, c.group).Err(); err != nil {
		c.logger.Warn("failed to destroy consumer group", zap.String("group", c.group), zap.Error(err))
	}
}

func (c *StreamConsumer) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if _, err := c.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("stream read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

// poll reads one batch, delivers it and acknowledges it.
func (c *StreamConsumer) poll(ctx context.Context) (int, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    100,
		Block:    c.block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	handled := 0
	for _, s := range streams {
		for _, msg := range s.Messages {
			c.handle(msg)
			if err := c.client.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
				c.logger.Warn("stream ack failed", zap.String("id", msg.ID), zap.Error(err))
			}
			handled++
		}
	}
	return handled, nil
}

func (c *StreamConsumer) handle(msg redis.XMessage) {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		c.logger.Warn("stream message without data", zap.String("id", msg.ID))
		return
	}
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		c.logger.Warn("stream message undecodable", zap.String("id", msg.ID), zap.Error(err))
		return
	}
	c.deliver(env)
}
