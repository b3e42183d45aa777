package models

import "time"

// Session is one continuous viewing/tagging attempt by one participant.
type Session struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID        string    `json:"user_id" gorm:"not null"`
	ClipStartTime string    `json:"clip_start_time" gorm:"not null"`
	StudyID       *string   `json:"study_id"`
	ParticipantID *string   `json:"participant_id"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
	Events        []Event   `json:"events" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// Event is a single marked timestamp within a Session.
type Event struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SessionID   string    `json:"session_id" gorm:"not null;index"`
	TimeSeconds float64   `json:"time_seconds" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
}
