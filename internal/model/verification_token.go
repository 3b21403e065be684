package model

import "time"

const (
	PurposeActivation    = "activation"
	PurposePasswordReset = "password_reset"
)

type VerificationToken struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	AccountID string `gorm:"not null;index"`
	TokenHash string `gorm:"not null;uniqueIndex;size:64"` // sha256 of the value sent by mail
	Purpose   string `gorm:"not null;index"`
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
	CreatedAt time.Time
	CleanupAt *time.Time `gorm:"index"`
}
