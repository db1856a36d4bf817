// Package events publishes quiz analytics to a watermill message bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/sirupsen/logrus"

	"windshield-quiz-service/internal/app"
	"windshield-quiz-service/internal/widget"
)

// Topics names the topics each event family is published to.
type Topics struct {
	Quiz   string
	Widget string
	Leads  string
}

// DefaultTopics is used for any topic left empty.
var DefaultTopics = Topics{
	Quiz:   "quiz.events",
	Widget: "quiz.widget",
	Leads:  "quiz.leads",
}

// TrackEvent is an analytics hit reported by a partner page hosting the widget.
type TrackEvent struct {
	PartnerID string         `json:"partnerId" validate:"required"`
	QuizID    string         `json:"quizId" validate:"required"`
	QuizSlug  string         `json:"quizSlug,omitempty"`
	EventType string         `json:"eventType" validate:"required"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// LeadEvent records a visitor reaching a lead action after a quiz.
type LeadEvent struct {
	QuizID    string    `json:"quizId"`
	Location  string    `json:"location,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher marshals events to JSON and publishes them as watermill messages.
// It implements app.EventSink.
type Publisher struct {
	publisher message.Publisher
	topics    Topics
	log       logrus.FieldLogger
}

func NewPublisher(publisher message.Publisher, topics Topics, log logrus.FieldLogger) *Publisher {
	if topics.Quiz == "" {
		topics.Quiz = DefaultTopics.Quiz
	}
	if topics.Widget == "" {
		topics.Widget = DefaultTopics.Widget
	}
	if topics.Leads == "" {
		topics.Leads = DefaultTopics.Leads
	}
	return &Publisher{publisher: publisher, topics: topics, log: log}
}

// NewKafkaPublisher connects a watermill publisher to Kafka.
func NewKafkaPublisher(brokers []string, log logrus.FieldLogger) (message.Publisher, error) {
	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, NewLogger(log))
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	return pub, nil
}

// NewInProcess returns an in-memory pub/sub. Messages published while no one
// is subscribed are dropped.
func NewInProcess(log logrus.FieldLogger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, NewLogger(log))
}

// Publish sends a quiz lifecycle event.
func (p *Publisher) Publish(ctx context.Context, event app.Event) error {
	return p.send(ctx, p.topics.Quiz, string(event.Kind), event, map[string]string{
		"quiz_id": event.QuizID,
	})
}

// Deliver sends a widget message, which makes the publisher a widget.Sink.
func (p *Publisher) Deliver(ctx context.Context, m widget.Message) error {
	return p.send(ctx, p.topics.Widget, m.Type, m, map[string]string{
		"quiz_id":    m.QuizID,
		"partner_id": m.PartnerID,
	})
}

func (p *Publisher) Track(ctx context.Context, event TrackEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return p.send(ctx, p.topics.Widget, "track."+event.EventType, event, map[string]string{
		"quiz_id":    event.QuizID,
		"partner_id": event.PartnerID,
	})
}

func (p *Publisher) Lead(ctx context.Context, event LeadEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return p.send(ctx, p.topics.Leads, "lead", event, map[string]string{
		"quiz_id": event.QuizID,
	})
}

func (p *Publisher) Close() error {
	return p.publisher.Close()
}

func (p *Publisher) send(ctx context.Context, topic, eventType string, payload any, meta map[string]string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", eventType)
	for k, v := range meta {
		if v != "" {
			msg.Metadata.Set(k, v)
		}
	}
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	p.log.WithFields(logrus.Fields{"topic": topic, "event_type": eventType, "message_id": msg.UUID}).Debug("published event")
	return nil
}
