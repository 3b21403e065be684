// Package model defines database models
package model

import "time"

type Account struct {
	ID           string     `gorm:"primaryKey;size:16"`
	Email        string     `gorm:"uniqueIndex;not null;size:254"`
	PasswordHash string     `gorm:"not null"`
	IsVerified   bool       `gorm:"not null;default:false"`
	LastLogin    *time.Time
	ExpiresAt    *time.Time `gorm:"index"` // Unverified accounts are removed once this passes
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Profile            Profile             `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	VerificationTokens []VerificationToken `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	ResendRequest      *ResendRequest      `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}
