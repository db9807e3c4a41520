// Package events publishes forum events to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/career-platform/internal/platform/natsconn"
)

const (
	SubjectPostCreated    = "forum.post.created"
	SubjectPostUpdated    = "forum.post.updated"
	SubjectPostDeleted    = "forum.post.deleted"
	SubjectPostVoted      = "forum.post.voted"
	SubjectCommentCreated = "forum.comment.created"
	SubjectCommentDeleted = "forum.comment.deleted"
	streamName            = "FORUM_EVENTS"
)

// Publisher publishes forum events to NATS JetStream.
type Publisher struct {
	js  nats.JetStreamContext
	nc  *nats.Conn
	log *zap.Logger
}

// New connects to NATS and ensures the FORUM_EVENTS stream exists.
// If natsURL is empty, returns a no-op publisher (stub).
func New(natsURL string, log *zap.Logger) (*Publisher, error) {
	if natsURL == "" {
		log.Warn("NATS_URL not set, forum events will not be published (stub mode)")
		return &Publisher{log: log}, nil
	}

	nc, err := natsconn.Connect(natsconn.Options{URL: natsURL})
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{"forum.>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		log.Warn("failed to create NATS stream (may already exist)", zap.Error(err))
	}

	log.Info("NATS publisher initialised", zap.String("stream", streamName))
	return &Publisher{js: js, nc: nc, log: log}, nil
}

// Close drains the underlying connection. Safe on a stub publisher.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// Event is the payload published to NATS.
type Event struct {
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	ActorID    string          `json:"actor_id"`
	Data       json.RawMessage `json:"data"`
}

// Publish sends a forum event to the given subject. Payloads that fail to
// marshal are logged and dropped; event delivery never fails a request.
// If JetStream is not configured (stub), it logs and returns.
func (p *Publisher) Publish(_ context.Context, subject, actorID string, payload any) {
	if p.js == nil {
		p.log.Debug("NATS stub: skipping publish", zap.String("subject", subject))
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Warn("event payload marshal failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	evt := Event{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Data:       data,
	}
	body, err := json.Marshal(evt)
	if err != nil {
		p.log.Warn("event marshal failed", zap.String("subject", subject), zap.Error(err))
		return
	}

	ack, err := p.js.Publish(subject, body)
	if err != nil {
		p.log.Warn("event publish failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	p.log.Debug("NATS event published",
		zap.String("subject", subject),
		zap.String("event_id", evt.EventID),
		zap.Uint64("seq", ack.Sequence),
	)
}
