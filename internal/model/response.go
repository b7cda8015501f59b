package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type SendMessageResponse struct {
	SessionID string  `json:"session_id"`
	Reply     Message `json:"reply"`
}

// SessionSummary is the admin listing shape. Disk-backed stores index only
// ids and timestamps, so the summary never claims message contents.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSessionSummary(s *Session) SessionSummary {
	return SessionSummary{
		SessionID: s.ID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type SessionResponse struct {
	SessionID     string          `json:"session_id"`
	Messages      []Message       `json:"messages"`
	PendingPhotos []PendingPhoto  `json:"pending_photos"`
	Contact       ContactDraft    `json:"contact"`
	JobItems      []JobLineItem   `json:"job_items"`
	JobsTotal     decimal.Decimal `json:"jobs_total"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func NewSessionResponse(s *Session) SessionResponse {
	return SessionResponse{
		SessionID:     s.ID,
		Messages:      s.Messages,
		PendingPhotos: s.PendingPhotos,
		Contact:       s.Contact,
		JobItems:      s.JobItems,
		JobsTotal:     JobsTotal(s.JobItems),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}
