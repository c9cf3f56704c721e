package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

const (
	TopicMoleculeMerged = "ctk.molecule.merged"
	TopicDeadLetter     = "ctk.dead_letter"

	HeaderEventType     = "event_type"
	HeaderOriginalTopic = "original_topic"
	HeaderError         = "error_message"

	SchemaVersion = "1"
)

// EventEnvelope wraps every event payload on the wire.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope serializes event into an envelope stamped with source.
func NewEnvelope(source string, event common.DomainEvent) (*EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "event payload")
	}
	return &EventEnvelope{
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		Source:        source,
		Timestamp:     event.OccurredAt(),
		SchemaVersion: SchemaVersion,
		Payload:       payload,
	}, nil
}

// DecodeMergedEvent parses a consumed message into a merge event.
func DecodeMergedEvent(msg *common.ConsumerMessage) (molecule.MoleculeMergedEvent, error) {
	var (
		env EventEnvelope
		ev  molecule.MoleculeMergedEvent
	)
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return ev, errors.Wrap(err, errors.ErrCodeSerialization, "event envelope")
	}
	if env.EventType != molecule.EventTypeMoleculeMerged {
		return ev, errors.New(errors.ErrCodeValidation, "unexpected event type").WithDetail(env.EventType)
	}
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return ev, errors.Wrap(err, errors.ErrCodeSerialization, "merge event payload")
	}
	return ev, nil
}

// EventPublisher publishes merge events keyed by the result molecule.
type EventPublisher struct {
	producer *Producer
	source   string
}

func NewEventPublisher(p *Producer, source string) *EventPublisher {
	return &EventPublisher{producer: p, source: source}
}

func (e *EventPublisher) PublishMerged(ctx context.Context, ev molecule.MoleculeMergedEvent) error {
	env, err := NewEnvelope(e.source, ev)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "event envelope")
	}
	return e.producer.Publish(ctx, &common.ProducerMessage{
		Topic:     TopicMoleculeMerged,
		Key:       []byte(ev.AggregateID()),
		Value:     data,
		Headers:   map[string]string{HeaderEventType: ev.EventType()},
		Timestamp: ev.OccurredAt(),
	})
}

func (e *EventPublisher) Close() error { return e.producer.Close() }
