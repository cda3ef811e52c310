package models

import (
	"time"
)

type AuthProvider string

const (
	GOOGLE AuthProvider = "google"
	KAKAO  AuthProvider = "kakao"
)

type User struct {
	ID        int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string       `gorm:"size:255;not null" json:"name"`
	Email     string       `gorm:"size:255;uniqueIndex" json:"email"`
	Image     string       `gorm:"size:1024" json:"image,omitempty"`
	Provider  AuthProvider `gorm:"type:auth_provider" json:"provider,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserSession - сессия пользователя после входа через OAuth-провайдера.
// Токен непрозрачный, создается на callback и живет до logout.
type UserSession struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index:user_session_idx,unique" json:"user_id"`
	Token     string    `gorm:"size:255;index:user_session_idx,unique" json:"token"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}
