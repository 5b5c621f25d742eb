package views

import (
	"time"

	"github.com/google/uuid"
)

// BankEvent is the Kafka payload published by bank-api after a committed write.
// The notification worker turns it into a user notification.
type BankEvent struct {
	ID         uuid.UUID         `json:"id" validate:"required"`
	Type       string            `json:"type" validate:"required"`
	UserID     uuid.UUID         `json:"userId" validate:"required"`
	EntityID   uuid.UUID         `json:"entityId"`
	Title      string            `json:"title" validate:"required"`
	Message    string            `json:"message" validate:"required"`
	Attributes map[string]string `json:"attributes,omitempty"`
	TraceID    string            `json:"traceId,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// ChangeAction names the kind of row change carried by a ChangeEvent.
type ChangeAction string

const (
	ActionInsert ChangeAction = "INSERT"
	ActionUpdate ChangeAction = "UPDATE"
	ActionDelete ChangeAction = "DELETE"
)

// ChangeEvent tells realtime subscribers that a row changed so they refetch.
type ChangeEvent struct {
	Table    string       `json:"table"`
	Action   ChangeAction `json:"action"`
	RecordID uuid.UUID    `json:"recordId"`
	UserID   uuid.UUID    `json:"userId"`
	At       time.Time    `json:"at"`
}
