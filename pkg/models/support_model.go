package models

import (
	"time"

	"github.com/google/uuid"
)

type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderAdmin SenderType = "admin"
)

// Conversation maps to table `support_conversations`
type Conversation struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Subject   string
	Status    ConversationStatus
	Priority  Priority
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message maps to table `support_messages`
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	SenderType     SenderType
	Body           string
	IsRead         bool
	CreatedAt      time.Time
}

// Notification maps to table `notifications`
type Notification struct {
	ID        uuid.UUID
	EventID   uuid.UUID
	UserID    uuid.UUID
	EventType string
	Title     string
	Body      string
	Delivered bool
	CreatedAt time.Time
}
