package model

import "time"

type ResendRequest struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	AccountID  string `gorm:"not null;uniqueIndex"`
	LastResend time.Time
	Attempts   int
}
