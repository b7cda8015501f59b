package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"homefront-backend/internal/config"
	"homefront-backend/internal/model"
	"homefront-backend/internal/objstore"
	"homefront-backend/internal/storage"
	"homefront-backend/internal/webhook"
	"homefront-backend/pkg/logger"
)

const (
	maxUserMessages  = 30
	historyWindow    = 20
	maxPendingPhotos = 10
	sourceTag        = "website"

	greetingMessage = "Hi! I'm the Homefront assistant. Tell me about your project — you can attach photos too."
	capMessage      = "You've reached the message limit for this conversation. Please tap Submit Request and our team will take it from here."
	apologyMessage  = "Sorry, something went wrong while sending your message. Please try again."
	genericAck      = "Thanks! We've received your message."
)

// ReplyClient is the conversation webhook: one turn in, one reply out.
type ReplyClient interface {
	Ask(ctx context.Context, payload webhook.Payload, photos []model.PhotoUpload) (string, error)
}

// Ingestor mirrors chat activity into backend storage. All chat-path calls
// are best-effort.
type Ingestor interface {
	EnsureRequest(ctx context.Context, sessionID, source string) (string, error)
	UploadPhotos(ctx context.Context, requestID, origin string, photos []model.PhotoUpload, sessionID string) ([]string, error)
	IngestMessage(ctx context.Context, sessionID, sender, content string, photosCount int, storagePaths []string) error
}

// ChatService owns one conversation thread per session id: the append-only
// message log, the pending-photo staging area, and every send/receive cycle.
type ChatService struct {
	storage  storage.Storage
	replies  ReplyClient
	ingestor Ingestor
	objects  objstore.Store
}

func NewChatService(store storage.Storage, replies ReplyClient, ingestor Ingestor, objects objstore.Store) *ChatService {
	return &ChatService{
		storage:  store,
		replies:  replies,
		ingestor: ingestor,
		objects:  objects,
	}
}

// NewStorage builds the session store selected by config, falling back to
// memory when disk initialization fails.
func NewStorage() storage.Storage {
	cfg := config.Get()

	var store storage.Storage
	if cfg != nil && cfg.Storage.Type == "disk" {
		store = storage.NewDiskStorage(cfg.Storage.DataDir, cfg.Storage.CacheSize)
	} else {
		store = storage.NewMemoryStorage()
	}

	if err := store.Init(); err != nil {
		logger.Errorf("Failed to initialize storage: %v", err)
		store = storage.NewMemoryStorage()
		store.Init()
	}

	return store
}

// EnsureSession resolves or lazily creates the session for id. An empty or
// absent log is seeded with the fixed greeting. Passing "" mints a new id.
func (s *ChatService) EnsureSession(sessionID string) (*model.Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	session, err := s.storage.GetSession(sessionID)
	if err != nil {
		if err != storage.ErrSessionNotFound {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}

		now := time.Now()
		session = &model.Session{
			ID:        sessionID,
			Messages:  []model.Message{s.greeting(sessionID)},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.storage.CreateSession(session); err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		return session, nil
	}

	if len(session.Messages) == 0 {
		session.Messages = []model.Message{s.greeting(sessionID)}
		session.UpdatedAt = time.Now()
		if err := s.storage.UpdateSession(session); err != nil {
			return nil, fmt.Errorf("failed to seed session: %w", err)
		}
	}

	return session, nil
}

// ListSessions returns every stored session, most recently active first.
// Disk-backed stores return index entries without the message log.
func (s *ChatService) ListSessions() ([]*model.Session, error) {
	sessions, err := s.storage.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// CleanupExpiredSessions deletes sessions idle for longer than ttl and
// reports how many were removed.
func (s *ChatService) CleanupExpiredSessions(ttl time.Duration) (int, error) {
	sessions, err := s.storage.ListSessions()
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for _, session := range sessions {
		if !session.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := s.storage.DeleteSession(session.ID); err != nil {
			logger.Errorf("Failed to delete expired session %s: %v", session.ID, err)
			continue
		}
		removed++
	}
	return removed, nil
}

// StartMaintenance launches the housekeeping loops: expired-session cleanup
// and periodic storage backups. A zero interval disables that loop.
func (s *ChatService) StartMaintenance(session config.SessionConfig, backupInterval time.Duration) {
	if session.CleanupInterval > 0 && session.TTL > 0 {
		go s.cleanupLoop(session.CleanupInterval, session.TTL)
	}
	if backupInterval > 0 {
		go s.backupLoop(backupInterval)
	}
}

func (s *ChatService) cleanupLoop(interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if removed, err := s.CleanupExpiredSessions(ttl); err != nil {
			logger.Errorf("Session cleanup failed: %v", err)
		} else if removed > 0 {
			logger.Infof("Cleaned up %d expired sessions", removed)
		}
	}
}

func (s *ChatService) backupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if err := s.storage.Backup(); err != nil {
			logger.Errorf("Storage backup failed: %v", err)
		}
	}
}

func (s *ChatService) GetSession(sessionID string) (*model.Session, error) {
	session, err := s.storage.GetSession(sessionID)
	if err != nil {
		if err == storage.ErrSessionNotFound {
			return nil, fmt.Errorf("session not found: %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// SubmitMessage runs one send/receive cycle and returns the assistant
// message appended to the log. A nil message with nil error means the input
// was empty and nothing happened.
func (s *ChatService) SubmitMessage(ctx context.Context, sessionID, text string) (*model.Message, error) {
	session, err := s.EnsureSession(sessionID)
	if err != nil {
		return nil, err
	}
	sessionID = session.ID

	text = strings.TrimSpace(text)
	if text == "" && len(session.PendingPhotos) == 0 {
		return nil, nil
	}

	// Cap check happens before anything else; a capped session appends the
	// fixed terminal message and makes no network calls.
	if session.UserMessageCount() >= maxUserMessages {
		capMsg := s.assistantMessage(sessionID, capMessage)
		if err := s.storage.AddMessage(sessionID, &capMsg); err != nil {
			return nil, fmt.Errorf("failed to append cap message: %w", err)
		}
		return &capMsg, nil
	}

	// Snapshot history and staging before the optimistic append.
	history := session.History(historyWindow)
	pending := session.PendingPhotos
	contact := session.Contact
	jobItems := session.JobItems

	photoRefs := make([]model.PhotoRef, 0, len(pending))
	for _, p := range pending {
		photoRefs = append(photoRefs, model.PhotoRef{
			Name:      p.Name,
			Size:      p.Size,
			ObjectKey: p.ObjectKey,
		})
	}

	userMsg := model.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    model.SenderUser,
		Content:   text,
		Photos:    photoRefs,
		Timestamp: time.Now(),
	}
	if err := s.storage.AddMessage(sessionID, &userMsg); err != nil {
		return nil, fmt.Errorf("failed to append user message: %w", err)
	}

	// Clear the staging area now that the photos belong to a message.
	session, err = s.storage.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload session: %w", err)
	}
	session.PendingPhotos = nil
	session.UpdatedAt = time.Now()
	if err := s.storage.UpdateSession(session); err != nil {
		return nil, fmt.Errorf("failed to clear pending photos: %w", err)
	}

	photos := s.loadPhotoContent(ctx, pending)

	// Best-effort mirroring into backend storage. Runs detached from the
	// reply path; failures never reach the visitor.
	go s.ingestUserMessage(sessionID, text, photos, len(photoRefs))

	payload := webhook.Payload{
		Sender:      model.SenderUser,
		Message:     text,
		PhotosCount: len(photoRefs),
		SessionID:   sessionID,
		History:     history,
		Contact:     contact,
		JobItems:    jobItems,
		JobsTotal:   model.JobsTotal(jobItems),
		Source:      sourceTag,
	}

	replyText, err := s.replies.Ask(ctx, payload, photos)
	if err != nil {
		logger.Warnf("Chat webhook failed for session %s: %v", sessionID, err)
		replyText = apologyMessage
	} else if replyText == "" {
		replyText = genericAck
	}

	reply := s.assistantMessage(sessionID, replyText)
	if err := s.storage.AddMessage(sessionID, &reply); err != nil {
		return nil, fmt.Errorf("failed to append assistant message: %w", err)
	}

	return &reply, nil
}

// ResetSession clears the log back to the greeting and empties the staging
// area, releasing staged preview objects.
func (s *ChatService) ResetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.EnsureSession(sessionID)
	if err != nil {
		return nil, err
	}

	for _, p := range session.PendingPhotos {
		if err := s.objects.Delete(ctx, p.ObjectKey); err != nil {
			logger.Warnf("Failed to release photo %s: %v", p.ObjectKey, err)
		}
	}

	session.Messages = []model.Message{s.greeting(session.ID)}
	session.PendingPhotos = nil
	session.UpdatedAt = time.Now()

	if err := s.storage.UpdateSession(session); err != nil {
		return nil, fmt.Errorf("failed to reset session: %w", err)
	}

	return session, nil
}

// AttachPhotos stages uploads for the next message. Files past the cap of
// 10 total pending are dropped, not queued; there is no error for overflow.
func (s *ChatService) AttachPhotos(ctx context.Context, sessionID string, files []model.PhotoUpload) ([]model.PendingPhoto, error) {
	session, err := s.EnsureSession(sessionID)
	if err != nil {
		return nil, err
	}

	allowed := maxPendingPhotos - len(session.PendingPhotos)
	if allowed <= 0 {
		return session.PendingPhotos, nil
	}
	if len(files) > allowed {
		files = files[:allowed]
	}

	for _, file := range files {
		key := session.ID + "/" + uuid.NewString() + filepath.Ext(file.Name)
		if err := s.objects.Put(ctx, key, file.Name, file.Content); err != nil {
			logger.Warnf("Failed to stage photo %s: %v", file.Name, err)
			continue
		}

		previewURL, err := s.objects.PresignGet(ctx, key)
		if err != nil {
			logger.Warnf("Failed to presign photo %s: %v", key, err)
		}

		session.PendingPhotos = append(session.PendingPhotos, model.PendingPhoto{
			ObjectKey:  key,
			Name:       file.Name,
			Size:       file.Size,
			PreviewURL: previewURL,
		})
	}

	session.UpdatedAt = time.Now()
	if err := s.storage.UpdateSession(session); err != nil {
		return nil, fmt.Errorf("failed to stage photos: %w", err)
	}

	return session.PendingPhotos, nil
}

// RemovePendingPhoto drops one staged photo and releases its object. An
// out-of-range index is a no-op.
func (s *ChatService) RemovePendingPhoto(ctx context.Context, sessionID string, index int) error {
	session, err := s.EnsureSession(sessionID)
	if err != nil {
		return err
	}

	if index < 0 || index >= len(session.PendingPhotos) {
		return nil
	}

	removed := session.PendingPhotos[index]
	if err := s.objects.Delete(ctx, removed.ObjectKey); err != nil {
		logger.Warnf("Failed to release photo %s: %v", removed.ObjectKey, err)
	}

	session.PendingPhotos = append(session.PendingPhotos[:index], session.PendingPhotos[index+1:]...)
	session.UpdatedAt = time.Now()

	if err := s.storage.UpdateSession(session); err != nil {
		return fmt.Errorf("failed to remove pending photo: %w", err)
	}
	return nil
}

// UpdateContact stores the draft, normalizing the phone to E.164 when it
// parses. A phone that does not parse keeps only its raw form.
func (s *ChatService) UpdateContact(sessionID string, contact model.ContactDraft) (*model.Session, error) {
	session, err := s.EnsureSession(sessionID)
	if err != nil {
		return nil, err
	}

	if e164, err := NormalizePhone(contact.Phone); err == nil {
		contact.PhoneE164 = e164
	} else {
		contact.PhoneE164 = ""
	}

	session.Contact = contact
	session.UpdatedAt = time.Now()

	if err := s.storage.UpdateSession(session); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	return session, nil
}

func (s *ChatService) AddJobItem(sessionID, name string, price decimal.Decimal) (*model.Session, error) {
	if price.IsNegative() {
		return nil, fmt.Errorf("job item price must not be negative")
	}

	session, err := s.EnsureSession(sessionID)
	if err != nil {
		return nil, err
	}

	session.JobItems = append(session.JobItems, model.JobLineItem{
		ID:    uuid.NewString(),
		Name:  name,
		Price: price,
	})
	session.UpdatedAt = time.Now()

	if err := s.storage.UpdateSession(session); err != nil {
		return nil, fmt.Errorf("failed to add job item: %w", err)
	}
	return session, nil
}

func (s *ChatService) RemoveJobItem(sessionID, itemID string) (*model.Session, error) {
	session, err := s.EnsureSession(sessionID)
	if err != nil {
		return nil, err
	}

	items := session.JobItems[:0]
	for _, item := range session.JobItems {
		if item.ID != itemID {
			items = append(items, item)
		}
	}
	session.JobItems = items
	session.UpdatedAt = time.Now()

	if err := s.storage.UpdateSession(session); err != nil {
		return nil, fmt.Errorf("failed to remove job item: %w", err)
	}
	return session, nil
}

// GetStorage exposes the store for services sharing the same instance.
func (s *ChatService) GetStorage() storage.Storage {
	return s.storage
}

func (s *ChatService) greeting(sessionID string) model.Message {
	return s.assistantMessage(sessionID, greetingMessage)
}

func (s *ChatService) assistantMessage(sessionID, content string) model.Message {
	return model.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    model.SenderAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func (s *ChatService) loadPhotoContent(ctx context.Context, pending []model.PendingPhoto) []model.PhotoUpload {
	photos := make([]model.PhotoUpload, 0, len(pending))
	for _, p := range pending {
		content, err := s.objects.Get(ctx, p.ObjectKey)
		if err != nil {
			logger.Warnf("Failed to load staged photo %s: %v", p.ObjectKey, err)
			continue
		}
		photos = append(photos, model.PhotoUpload{
			Name:    p.Name,
			Size:    p.Size,
			Content: content,
		})
	}
	return photos
}

// ingestUserMessage is the side-channel persistence step: ensure-request,
// upload photos, ingest the message. Pure telemetry; every failure is
// swallowed after a debug log.
func (s *ChatService) ingestUserMessage(sessionID, text string, photos []model.PhotoUpload, photosCount int) {
	ctx := context.Background()

	var storagePaths []string
	if len(photos) > 0 {
		requestID, err := s.ingestor.EnsureRequest(ctx, sessionID, sourceTag)
		if err != nil {
			logger.Debugf("Ingest ensure-request failed for session %s: %v", sessionID, err)
		} else {
			storagePaths, err = s.ingestor.UploadPhotos(ctx, requestID, "chat", photos, sessionID)
			if err != nil {
				logger.Debugf("Ingest photo upload failed for session %s: %v", sessionID, err)
				storagePaths = nil
			}
		}
	}

	if err := s.ingestor.IngestMessage(ctx, sessionID, model.SenderUser, text, photosCount, storagePaths); err != nil {
		logger.Debugf("Ingest message failed for session %s: %v", sessionID, err)
	}
}
