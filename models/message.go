package models

import (
	"time"
)

// Conversation - переписка между пользователями. Схема объявлена и
// мигрируется, но обработчиков для нее пока нет: экраны сообщений
// работают на заглушках, дизайн хранения переписки не зафиксирован.
type Conversation struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	LastMessageID *int64    `json:"last_message_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// ConversationParticipant - участник переписки
type ConversationParticipant struct {
	ID             int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID int64 `gorm:"index:conversation_user_idx,unique" json:"conversation_id"`
	UserID         int64 `gorm:"index:conversation_user_idx,unique" json:"user_id"`
}

func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

// Message - сообщение внутри переписки
type Message struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID int64     `gorm:"index" json:"conversation_id"`
	SenderID       int64     `gorm:"index" json:"sender_id"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	Read           bool      `gorm:"default:false" json:"read"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}
