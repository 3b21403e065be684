package model

import "time"

type Task struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProfileID uint      `gorm:"not null;index:idx_tasks_profile_position,priority:1" json:"-"`
	Title     string    `gorm:"not null;size:255" json:"title"`
	Complete  bool      `gorm:"not null;default:false" json:"complete"`
	Position  int64     `gorm:"not null;index:idx_tasks_profile_position,priority:2" json:"position"` // Gaps are fine, only the order matters
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}
