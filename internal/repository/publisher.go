// Package repository provides the concrete frame publishers behind the
// repository.Publisher port. One backend is selected at startup: WebSocket
// fan-out, Kafka topics, or Redis pub/sub channels.
package repository

import (
	"context"
	"fmt"

	domrepo "ChartServer/internal/domain/repository"
	"ChartServer/internal/market"
	"ChartServer/internal/stream"
	pkgkafka "ChartServer/pkg/kafka"
	xlogger "ChartServer/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// HubPublisher broadcasts frames to connected WebSocket clients.
type HubPublisher struct {
	hub     *stream.Hub
	metrics domrepo.Metrics
}

// NewHubPublisher creates a WebSocket-backed publisher.
func NewHubPublisher(hub *stream.Hub, m domrepo.Metrics) *HubPublisher {
	return &HubPublisher{hub: hub, metrics: m}
}

func (p *HubPublisher) Publish(ctx context.Context, symbol market.Symbol, dest domrepo.Destination, frame string) error {
	if !domrepo.IsValidDestination(dest) {
		return fmt.Errorf("unknown destination %q", dest)
	}
	p.hub.Broadcast(symbol, dest, frame)
	if p.metrics != nil {
		p.metrics.RecordFrameSent("ws", string(dest), symbol.String())
	}
	return nil
}

func (p *HubPublisher) Close() error {
	return p.hub.Close()
}

// KafkaPublisher writes frames to per-destination Kafka topics, keyed by
// symbol so one symbol stays on one partition.
type KafkaPublisher struct {
	producer    *pkgkafka.Producer
	tickTopic   string
	candleTopic string
	metrics     domrepo.Metrics
	log         *xlogger.Logger
}

// NewKafkaPublisher creates a Kafka-backed publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, tickTopic, candleTopic string, m domrepo.Metrics, log *xlogger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer:    producer,
		tickTopic:   tickTopic,
		candleTopic: candleTopic,
		metrics:     m,
		log:         log,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, symbol market.Symbol, dest domrepo.Destination, frame string) error {
	var topic string
	switch dest {
	case domrepo.DestinationTick:
		topic = p.tickTopic
	case domrepo.DestinationCandle:
		topic = p.candleTopic
	default:
		return fmt.Errorf("unknown destination %q", dest)
	}

	if err := p.producer.Publish(ctx, topic, []byte(symbol), frame); err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("kafka_publish")
		}
		return fmt.Errorf("kafka publish %s: %w", topic, err)
	}
	if p.metrics != nil {
		p.metrics.RecordFrameSent("kafka", string(dest), symbol.String())
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// RedisPublisher publishes frames to Redis pub/sub channels named
// <prefix>.<destination>.
type RedisPublisher struct {
	client  *redis.Client
	prefix  string
	metrics domrepo.Metrics
}

// NewRedisPublisher creates a Redis pub/sub backed publisher.
func NewRedisPublisher(client *redis.Client, channelPrefix string, m domrepo.Metrics) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: channelPrefix, metrics: m}
}

func (p *RedisPublisher) Publish(ctx context.Context, symbol market.Symbol, dest domrepo.Destination, frame string) error {
	if !domrepo.IsValidDestination(dest) {
		return fmt.Errorf("unknown destination %q", dest)
	}

	channel := fmt.Sprintf("%s.%s", p.prefix, dest)
	if err := p.client.Publish(ctx, channel, frame).Err(); err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("redis_publish")
		}
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	if p.metrics != nil {
		p.metrics.RecordFrameSent("redis", string(dest), symbol.String())
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
