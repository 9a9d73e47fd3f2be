// Package nats delivers outbound bot messages over a NATS subject per
// session, so SMS gateways or web frontends can fan them out without
// the engine knowing the transport.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aretw0/parley/internal/delivery"
)

// SubjectPrefix is prepended to the session ID to form the publish
// subject, e.g. "parley.outbound.+15550100".
const SubjectPrefix = "parley.outbound."

// OutboundMessage is one delivered segment. A response with embedded
// image markers becomes several messages, text and image interleaved in
// source order.
type OutboundMessage struct {
	SessionID string    `json:"session_id"`
	Text      string    `json:"text,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// Deliverer implements ports.Deliverer on a NATS connection.
type Deliverer struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// New connects to the NATS server with retrying reconnect handling.
func New(url, token string, logger *slog.Logger) (*Deliverer, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Deliverer{conn: nc, logger: logger}, nil
}

// NewFromConn wraps an existing connection.
func NewFromConn(conn *nats.Conn, logger *slog.Logger) *Deliverer {
	return &Deliverer{conn: conn, logger: logger}
}

// Deliver splits the response on image markers and publishes one
// message per segment to the session's subject.
func (d *Deliverer) Deliver(ctx context.Context, sessionID, text string) error {
	subject := SubjectPrefix + sessionID
	now := time.Now().UTC()

	for _, seg := range delivery.Split(text) {
		msg := OutboundMessage{
			SessionID: sessionID,
			Text:      seg.Text,
			ImageURL:  seg.Image,
			SentAt:    now,
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal outbound message: %w", err)
		}
		if err := d.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("publish to %s: %w", subject, err)
		}
	}
	return nil
}

// Close drains the connection.
func (d *Deliverer) Close() {
	d.conn.Close()
}
