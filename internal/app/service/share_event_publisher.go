package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerDrive/internal/app/model"
)

// StreamPublisher is the part of a JetStream context the publisher needs.
type StreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// ShareEventPublisher publishes share lifecycle events to NATS JetStream.
type ShareEventPublisher struct {
	js  StreamPublisher
	now func() time.Time
}

// NewShareEventPublisher creates a new share event publisher.
func NewShareEventPublisher(js StreamPublisher) *ShareEventPublisher {
	return &ShareEventPublisher{js: js, now: time.Now}
}

// Publish stamps the event with an id and timestamp and publishes it to the stream.
func (p *ShareEventPublisher) Publish(event model.ShareEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.ShareStreamSubject, data, nats.MsgId(event.ID))
	return err
}
