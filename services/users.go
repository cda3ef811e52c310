package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"connect/db"
	"connect/models"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

// ProviderProfile - профиль, полученный от OAuth-провайдера на callback
type ProviderProfile struct {
	Name     string
	Email    string
	Image    string
	Provider models.AuthProvider
}

type UserService struct{}

func NewUserService() *UserService {
	return &UserService{}
}

// UpsertByEmail находит пользователя по email или создает нового при
// первом входе. Имя, аватар и провайдер обновляются данными из
// последнего входа.
func (us *UserService) UpsertByEmail(ctx context.Context, profile ProviderProfile) (*models.User, error) {
	if profile.Email == "" {
		return nil, errors.New("provider profile has no email")
	}

	var user models.User
	err := db.GetWriteDB(ctx).Where("email = ?", profile.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Name:     profile.Name,
			Email:    profile.Email,
			Image:    profile.Image,
			Provider: profile.Provider,
		}
		if err := db.GetWriteDB(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return &user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user.Name = profile.Name
	user.Image = profile.Image
	user.Provider = profile.Provider
	if err := db.GetWriteDB(ctx).Save(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

// GetByID возвращает пользователя по идентификатору
func (us *UserService) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateSession выдает новый непрозрачный токен сессии, снося
// предыдущую сессию пользователя
func (us *UserService) CreateSession(ctx context.Context, userID int64) (string, error) {
	if err := db.GetWriteDB(ctx).Where("user_id = ?", userID).Delete(&models.UserSession{}).Error; err != nil {
		return "", fmt.Errorf("failed to drop old sessions: %w", err)
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	session := models.UserSession{UserID: userID, Token: token}
	if err := db.GetWriteDB(ctx).Create(&session).Error; err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return token, nil
}

// ResolveSession возвращает пользователя по токену сессии
func (us *UserService) ResolveSession(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	var session models.UserSession
	err := db.GetReadOnlyDB(ctx).Where("token = ?", token).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	var user models.User
	if err := db.GetReadOnlyDB(ctx).Where("id = ?", session.UserID).First(&user).Error; err != nil {
		return nil, ErrSessionNotFound
	}
	return &user, nil
}

// DeleteSession удаляет сессию по токену (logout)
func (us *UserService) DeleteSession(ctx context.Context, token string) error {
	return db.GetWriteDB(ctx).Where("token = ?", token).Delete(&models.UserSession{}).Error
}
