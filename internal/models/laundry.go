package models

import "time"

// LaundryReservation is the active claim on the washing machine. The table
// holds at most one row.
type LaundryReservation struct {
	ID             uint      `gorm:"primaryKey"`
	Holder         string    `gorm:"size:64;not null"`
	ConversationID string    `gorm:"size:64;not null"`
	StartedAt      time.Time `gorm:"not null"`
	EndsAt         time.Time `gorm:"not null"`
	UpdatedAt      time.Time
}

// LaundryQueueEntry is one participant waiting for the machine.
type LaundryQueueEntry struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	Position       int    `gorm:"not null;index"`
	ParticipantID  string `gorm:"size:64;not null;uniqueIndex"`
	ConversationID string `gorm:"size:64;not null"`
	CreatedAt      time.Time
}
