package models

import "time"

// ConversionRecord describes one settled conversion attempt.
type ConversionRecord struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"sessionId"`
	FileName    string       `json:"fileName"`
	Origin      Origin       `json:"origin"`
	State       RequestState `json:"state"`
	Error       string       `json:"error,omitempty"`
	DurationMs  int64        `json:"durationMs"`
	ResultBytes int64        `json:"resultBytes"`
	CreatedAt   time.Time    `json:"createdAt"`
}
