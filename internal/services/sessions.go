package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nssnepal/membership/internal/models"
)

// CreateSession opens a login session for userID lasting ttl.
func CreateSession(gdb *gorm.DB, userID uint, ttl time.Duration) (models.Session, error) {
	s := models.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: timeNow().UTC().Add(ttl),
	}
	return s, gdb.Create(&s).Error
}

func DeleteSession(gdb *gorm.DB, token string) error {
	if token == "" {
		return nil
	}
	return gdb.Where("token = ?", token).Delete(&models.Session{}).Error
}

// SessionUser resolves a live session token to its user.
func SessionUser(gdb *gorm.DB, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrNotFound
	}
	var s models.Session
	err := gdb.Where("token = ? AND expires_at > ?", token, timeNow().UTC()).First(&s).Error
	if err != nil {
		return models.User{}, notFound(err)
	}
	u, err := GetUser(gdb, s.UserID)
	if err != nil {
		return models.User{}, err
	}
	if !u.IsActive {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

// PurgeSessions drops expired sessions and returns how many went.
func PurgeSessions(gdb *gorm.DB) (int64, error) {
	res := gdb.Where("expires_at <= ?", timeNow().UTC()).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}
