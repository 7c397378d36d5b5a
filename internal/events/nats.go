package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"pdfchat/internal/retry"
)

const (
	subjectPrefix   = "documents.events."
	publishAttempts = 3
	publishBackoff  = 200 * time.Millisecond
)

// NewNATS constructs a thin NATS-based publisher.
func NewNATS(log *slog.Logger, nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{log: log, nc: nc}
}

type NATSPublisher struct {
	log *slog.Logger
	nc  *nats.Conn
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	subject := subjectPrefix + string(event.Type)
	return retry.Do(ctx, publishAttempts, publishBackoff, func() error {
		return p.nc.Publish(subject, body)
	})
}

func (p *NATSPublisher) Close() error {
	p.nc.Close()
	return nil
}
