package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// PhotoRef is the persisted metadata of a photo attached to a message.
// Binary content never enters the session log; it lives in the object store
// under ObjectKey, and StoragePath is the backend-side reference returned by
// the ingestion API (empty when the upload never happened).
type PhotoRef struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ObjectKey   string `json:"object_key"`
	StoragePath string `json:"storage_path,omitempty"`
}

type Message struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	Sender    string     `json:"sender"`
	Content   string     `json:"content"`
	Photos    []PhotoRef `json:"photos,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// PendingPhoto is a staged attachment that has not been sent yet. PreviewURL
// is resolvable by the client (presigned GET against the object store).
type PendingPhoto struct {
	ObjectKey  string `json:"object_key"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	PreviewURL string `json:"preview_url"`
}

type JobLineItem struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// JobsTotal sums the line item prices. Items with negative prices are not
// representable; AddJobItem rejects them before they reach the session.
func JobsTotal(items []JobLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price)
	}
	return total
}

type ContactDraft struct {
	Address    string `json:"address"`
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	PhoneE164  string `json:"phone_e164,omitempty"`
	Email      string `json:"email"`
	SMSConsent bool   `json:"sms_consent"`
}

// Complete reports whether the draft carries everything the final lead
// submission requires. Chat never checks this.
func (c ContactDraft) Complete() bool {
	return strings.TrimSpace(c.Address) != "" &&
		strings.TrimSpace(c.FullName) != "" &&
		strings.TrimSpace(c.Phone) != "" &&
		strings.TrimSpace(c.Email) != ""
}

type Session struct {
	ID            string         `json:"id"`
	Messages      []Message      `json:"messages"`
	PendingPhotos []PendingPhoto `json:"pending_photos,omitempty"`
	Contact       ContactDraft   `json:"contact"`
	JobItems      []JobLineItem  `json:"job_items,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// UserMessageCount counts user-sender entries in the log; the send cap is
// checked against it.
func (s *Session) UserMessageCount() int {
	count := 0
	for _, msg := range s.Messages {
		if msg.Sender == SenderUser {
			count++
		}
	}
	return count
}

// HistoryEntry is a prior turn reduced to what the chat webhook needs for
// context.
type HistoryEntry struct {
	Sender      string `json:"sender"`
	Content     string `json:"content"`
	PhotosCount int    `json:"photos_count"`
}

// History returns up to limit prior messages, newest last.
func (s *Session) History(limit int) []HistoryEntry {
	msgs := s.Messages
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	entries := make([]HistoryEntry, 0, len(msgs))
	for _, msg := range msgs {
		entries = append(entries, HistoryEntry{
			Sender:      msg.Sender,
			Content:     msg.Content,
			PhotosCount: len(msg.Photos),
		})
	}
	return entries
}

// PhotoUpload carries photo binary content through the send path. It is
// never persisted; only PhotoRef metadata reaches the session log.
type PhotoUpload struct {
	Name    string
	Size    int64
	Content []byte
}

// Address is a structured result from the autocomplete collaborator.
type Address struct {
	Formatted string `json:"formatted"`
	Street    string `json:"street,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
}
