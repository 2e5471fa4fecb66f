package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"zoombid/internal/config"
	"zoombid/internal/domain"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	maxReconnects = 5
	reconnectWait = 2 * time.Second
)

// Publisher announces lifecycle events on the bus
type Publisher interface {
	Publish(ctx context.Context, event *domain.Event) error
	Close()
}

// NATSPublisher publishes each event as JSON on <prefix>.<kind>
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewPublisher connects to NATS, or returns a no-op publisher when no URL is configured
func NewPublisher(cfg config.NATSConfig, logger *zap.Logger) (Publisher, error) {
	if cfg.URL == "" {
		logger.Info("NATS URL not configured, lifecycle events will not be published")
		return NoopPublisher{}, nil
	}

	opts := []nats.Option{
		nats.Name("zoombid api"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	logger.Info("Connected to NATS", zap.String("url", conn.ConnectedUrl()))
	return &NATSPublisher{conn: conn, prefix: cfg.SubjectPrefix}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event *domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(Subject(p.prefix, event.Kind), data)
}

// Close flushes pending messages and closes the connection
func (p *NATSPublisher) Close() {
	_ = p.conn.Drain()
}

// Subject returns the subject an event kind is published on
func Subject(prefix string, kind domain.EventKind) string {
	if prefix == "" {
		return string(kind)
	}
	return prefix + "." + string(kind)
}

// Encode serializes an event for the bus
func Encode(event *domain.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", event.Kind, err)
	}
	return data, nil
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *domain.Event) error { return nil }

func (NoopPublisher) Close() {}
