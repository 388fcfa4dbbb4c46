// Package domain holds user types for the rewards platform.
package domain

import (
	"context"
	"time"
)

// User is a rewards platform account. ReferralCode is the short
// human-shareable token the user hands out; ReferredBy stores the code of
// whoever referred them (codes, not IDs, are what users actually share).
type User struct {
	UserID       int64     `gorm:"primaryKey;autoIncrement" json:"user_id"`
	Username     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	ReferralCode string    `gorm:"type:varchar(16);uniqueIndex;not null" json:"referral_code"`
	ReferredBy   string    `gorm:"type:varchar(16);index" json:"referred_by"`
	Premium      bool      `gorm:"not null;default:false" json:"premium"`
	Balance      int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// Repository defines user persistence
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID int64) (*User, error)
	GetByReferralCode(ctx context.Context, code string) (*User, error)
}
