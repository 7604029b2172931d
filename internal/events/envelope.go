package events

import (
	"encoding/json"
	"fmt"
	"time"
)

type Envelope struct {
	EventType     EventType       `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// Wrap serializes an event into its transport envelope.
func Wrap(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	env := Envelope{
		EventType:     ev.Type(),
		AggregateType: aggregateType(ev.Type()),
		AggregateID:   ev.AggregateID().String(),
		OccurredAt:    time.Now().UTC(),
		Payload:       payload,
	}
	return json.Marshal(env)
}

// Unwrap decodes an envelope back into its typed event. Unknown event
// types return an error so callers can drop them without guessing.
func Unwrap(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	var ev Event
	switch env.EventType {
	case EventMessageInserted:
		ev = &MessageInsertedEvent{}
	case EventMessageDeleted:
		ev = &MessageDeletedEvent{}
	case EventReceiptInserted:
		ev = &ReceiptInsertedEvent{}
	case EventThreadUpdated:
		ev = &ThreadUpdatedEvent{}
	case EventPresenceSync:
		ev = &PresenceSyncEvent{}
	case EventTypingStarted, EventTypingStopped:
		typed := &TypingEvent{EventTypeVal: env.EventType}
		if err := json.Unmarshal(env.Payload, typed); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", env.EventType, err)
		}
		typed.EventTypeVal = env.EventType
		return typed, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.EventType)
	}

	if err := json.Unmarshal(env.Payload, ev); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", env.EventType, err)
	}
	return ev, nil
}

func aggregateType(t EventType) string {
	switch t {
	case EventMessageInserted, EventMessageDeleted:
		return AggregateTypeMessage
	case EventReceiptInserted:
		return AggregateTypeReceipt
	case EventThreadUpdated:
		return AggregateTypeThread
	case EventPresenceSync:
		return AggregateTypePresence
	case EventTypingStarted, EventTypingStopped:
		return AggregateTypeTyping
	}
	return ""
}
