package model

import "time"

type Profile struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	AccountID   string `gorm:"uniqueIndex;not null;size:16"`
	FirstName   string `gorm:"size:150"`
	LastName    string `gorm:"size:150"`
	ImageKey    string // Key in the image store, empty when there's no image
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Tasks []Task `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
}
