package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionKey identifies one logical observation across the three telemetry
// sources. CapturedAt is kept as UTC nanoseconds so the key is comparable.
type SessionKey struct {
	SessionID  string
	UserID     string
	CapturedAt int64
}

func NewSessionKey(sessionID, userID string, capturedAt time.Time) SessionKey {
	return SessionKey{
		SessionID:  sessionID,
		UserID:     userID,
		CapturedAt: capturedAt.UTC().UnixNano(),
	}
}

// VlogRecord is one short-video reference captured by the mobile app.
type VlogRecord struct {
	ID              uuid.UUID `db:"id" json:"id"`
	SessionID       string    `db:"session_id" json:"session_id"`
	UserID          string    `db:"user_id" json:"user_id"`
	CapturedAt      time.Time `db:"captured_at" json:"captured_at"`
	VideoReference  string    `db:"video_reference" json:"video_reference"`
	DurationSeconds *float64  `db:"duration_seconds" json:"duration_seconds,omitempty"`
	IngestedAt      time.Time `db:"ingested_at" json:"ingested_at"`
}

func (r VlogRecord) Key() SessionKey {
	return NewSessionKey(r.SessionID, r.UserID, r.CapturedAt)
}

// EmotionRecord is one emotion-score sample.
type EmotionRecord struct {
	ID           uuid.UUID `db:"id" json:"id"`
	SessionID    string    `db:"session_id" json:"session_id"`
	UserID       string    `db:"user_id" json:"user_id"`
	CapturedAt   time.Time `db:"captured_at" json:"captured_at"`
	EmotionLabel string    `db:"emotion_label" json:"emotion_label"`
	EmotionScore float64   `db:"emotion_score" json:"emotion_score"`
	IngestedAt   time.Time `db:"ingested_at" json:"ingested_at"`
}

func (r EmotionRecord) Key() SessionKey {
	return NewSessionKey(r.SessionID, r.UserID, r.CapturedAt)
}

// GPSRecord is one GPS coordinate sample.
type GPSRecord struct {
	ID         uuid.UUID `db:"id" json:"id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	CapturedAt time.Time `db:"captured_at" json:"captured_at"`
	Latitude   float64   `db:"latitude" json:"latitude"`
	Longitude  float64   `db:"longitude" json:"longitude"`
	IngestedAt time.Time `db:"ingested_at" json:"ingested_at"`
}

func (r GPSRecord) Key() SessionKey {
	return NewSessionKey(r.SessionID, r.UserID, r.CapturedAt)
}
