package storage

import (
	"homefront-backend/internal/model"
)

type Storage interface {
	// Session management
	CreateSession(session *model.Session) error
	GetSession(sessionID string) (*model.Session, error)
	UpdateSession(session *model.Session) error
	DeleteSession(sessionID string) error
	ListSessions() ([]*model.Session, error)

	// Message management
	AddMessage(sessionID string, message *model.Message) error
	GetMessages(sessionID string) ([]*model.Message, error)

	// Storage management
	Init() error
	Close() error
	Backup() error
}
