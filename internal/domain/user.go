package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account row. PasswordHash never leaves the repository layer.
type User struct {
	ID           uuid.UUID
	Username     string
	DisplayName  string
	AvatarPath   string
	PasswordHash string
	CreatedAt    time.Time
}

func (u User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarPath:  u.AvatarPath,
	}
}
