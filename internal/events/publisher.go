package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/vedran77/spark/pkg/logger"
	"go.uber.org/zap"
)

// NATSPublisher emits core events onto NATS subjects. Delivery and
// fan-out belong to the consumers; publishing is fire-and-forget and a
// publish failure never fails the mutation that produced it.
type NATSPublisher struct {
	nc *nats.Conn
}

func Connect(url, name string) (*NATSPublisher, error) {
	nc, err := nats.Connect(strings.TrimSpace(url),
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.Timeout(3*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("events: marshal payload", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		logger.Error("events: publish", zap.String("subject", subject), zap.Error(err))
	}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

// Noop satisfies the publisher contract when NATS is not configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) {}
