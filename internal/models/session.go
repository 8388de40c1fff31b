package models

import "time"

// RequestState represents where a conversion session is in its lifecycle.
type RequestState string

const (
	RequestStateIdle      RequestState = "idle"
	RequestStateInFlight  RequestState = "in_flight"
	RequestStateSucceeded RequestState = "succeeded"
	RequestStateFailed    RequestState = "failed"
)

// String returns the string representation of RequestState
func (s RequestState) String() string {
	return string(s)
}

// IsBusy returns true while a fetch or conversion request is outstanding.
func (s RequestState) IsBusy() bool {
	return s == RequestStateInFlight
}

// IsSettled returns true once a conversion has either succeeded or failed.
func (s RequestState) IsSettled() bool {
	return s == RequestStateSucceeded || s == RequestStateFailed
}

// SessionSnapshot is the JSON view of a conversion session.
type SessionSnapshot struct {
	ID         string       `json:"id"`
	State      RequestState `json:"state"`
	SourceFile *SourceFile  `json:"sourceFile,omitempty"`
	SourceURL  string       `json:"sourceUrl,omitempty"`
	HasResult  bool         `json:"hasResult"`
	Error      string       `json:"error,omitempty"` // Last failure message
	UpdatedAt  time.Time    `json:"updatedAt"`
}
