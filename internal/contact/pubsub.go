package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
)

// PubSubPublisher delivers submissions as JSON messages on a Pub/Sub topic.
type PubSubPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubPublisher constructs a Pub/Sub backed Submitter.
func NewPubSubPublisher(topic *pubsub.Topic) (*PubSubPublisher, error) {
	if topic == nil {
		return nil, errors.New("contact pubsub publisher: topic is required")
	}
	return &PubSubPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

type message struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	City        string    `json:"city"`
	Message     string    `json:"message"`
	Locale      string    `json:"locale,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

func (p *PubSubPublisher) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	if p == nil || p.topic == nil {
		return Receipt{}, ErrNotConfigured
	}

	data, err := p.marshal(message{
		ID:          sub.ID,
		Name:        sub.Form.Name,
		Email:       sub.Form.Email,
		Phone:       sub.Form.Phone,
		City:        sub.Form.City,
		Message:     sub.Form.Message,
		Locale:      sub.Locale,
		SubmittedAt: sub.SubmittedAt,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("marshal contact submission: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "submissionId", sub.ID)
	setAttr(attrs, "locale", sub.Locale)
	setAttr(attrs, "type", "contact.submitted")

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	id, err := result.Get(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("publish contact submission: %w", err)
	}
	return Receipt{ID: sub.ID, MessageID: id, Status: "queued"}, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
