package kafka

import (
	"encoding/json"
	"time"
)

// Топики сервиса.
const (
	TopicOrderEvents     = "checkout.order.events"
	TopicDeadLetterQueue = "checkout.dlq"
)

// Заголовки сообщений: тип события дублируется в заголовке, чтобы
// потребители могли фильтровать поток без разбора тела.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
)

// EventEnvelope — wire-формат публикуемого outbox-события.
// Payload передаётся как есть, в том виде, в каком его положил сервис.
type EventEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}
