package model

import "github.com/shopspring/decimal"

type SendMessageRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message"`
}

type ResetSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type UpdateContactRequest struct {
	SessionID string       `json:"session_id" binding:"required"`
	Contact   ContactDraft `json:"contact"`
}

type AddJobItemRequest struct {
	SessionID string          `json:"session_id" binding:"required"`
	Name      string          `json:"name" binding:"required"`
	Price     decimal.Decimal `json:"price"`
}

type RemoveJobItemRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	ItemID    string `json:"item_id" binding:"required"`
}

type SubmitLeadRequest struct {
	SessionID string       `json:"session_id" binding:"required"`
	Contact   ContactDraft `json:"contact"`
}

// ContactFormRequest backs the stateless contact page.
type ContactFormRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Message  string `json:"message"`
}

// BookingFormRequest backs the stateless booking page.
type BookingFormRequest struct {
	FullName      string `json:"full_name" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	Email         string `json:"email" binding:"required"`
	Address       string `json:"address"`
	Service       string `json:"service" binding:"required"`
	PreferredDate string `json:"preferred_date"`
	Notes         string `json:"notes"`
}
