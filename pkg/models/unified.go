package models

import "time"

// UnifiedRow is the sparse superset row produced by reconciliation: one row
// per distinct session key observed across all three sources. Field groups
// whose source record was absent for the key stay nil. UnifiedRows are
// derived per request and never persisted.
type UnifiedRow struct {
	SessionID       string    `json:"session_id"`
	UserID          string    `json:"user_id"`
	CapturedAt      time.Time `json:"captured_at"`
	VideoReference  *string   `json:"video_reference,omitempty"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	EmotionLabel    *string   `json:"emotion_label,omitempty"`
	EmotionScore    *float64  `json:"emotion_score,omitempty"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
}

// HasVlog reports whether the vlog field group contributed to this row.
func (r UnifiedRow) HasVlog() bool {
	return r.VideoReference != nil
}

// HasEmotion reports whether the emotion field group contributed to this row.
func (r UnifiedRow) HasEmotion() bool {
	return r.EmotionLabel != nil || r.EmotionScore != nil
}

// HasGPS reports whether the GPS field group contributed to this row.
func (r UnifiedRow) HasGPS() bool {
	return r.Latitude != nil || r.Longitude != nil
}
