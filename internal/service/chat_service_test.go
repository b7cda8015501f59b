package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"homefront-backend/internal/model"
	"homefront-backend/internal/storage"
	"homefront-backend/internal/webhook"
)

type mockReplies struct {
	reply     string
	err       error
	callCount int
	payloads  []webhook.Payload
	photos    [][]model.PhotoUpload
}

func (m *mockReplies) Ask(_ context.Context, payload webhook.Payload, photos []model.PhotoUpload) (string, error) {
	m.callCount++
	m.payloads = append(m.payloads, payload)
	m.photos = append(m.photos, photos)
	return m.reply, m.err
}

type mockIngestor struct {
	mu             sync.Mutex
	ensureErr      error
	uploadErr      error
	ingestErr      error
	ensureCalls    int
	uploadCalls    int
	ingestCalls    int
	lastContent    string
	lastPaths      []string
	lastPhotoCount int
	done           chan struct{}
}

func newMockIngestor() *mockIngestor {
	return &mockIngestor{done: make(chan struct{}, 10)}
}

func (m *mockIngestor) EnsureRequest(_ context.Context, _, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureCalls++
	if m.ensureErr != nil {
		return "", m.ensureErr
	}
	return "req-1", nil
}

func (m *mockIngestor) UploadPhotos(_ context.Context, _, _ string, photos []model.PhotoUpload, _ string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadCalls++
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	paths := make([]string, len(photos))
	for i := range photos {
		paths[i] = fmt.Sprintf("stored/%d", i)
	}
	return paths, nil
}

func (m *mockIngestor) IngestMessage(_ context.Context, _, _, content string, photosCount int, storagePaths []string) error {
	m.mu.Lock()
	m.ingestCalls++
	m.lastContent = content
	m.lastPaths = storagePaths
	m.lastPhotoCount = photosCount
	err := m.ingestErr
	m.mu.Unlock()
	m.done <- struct{}{}
	return err
}

func (m *mockIngestor) waitIngest(t *testing.T) {
	t.Helper()
	select {
	case <-m.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ingest call")
	}
}

func (m *mockIngestor) calls() (ensure, upload, ingest int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureCalls, m.uploadCalls, m.ingestCalls
}

type mockObjects struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
	putErr  error
}

func newMockObjects() *mockObjects {
	return &mockObjects{data: make(map[string][]byte)}
}

func (m *mockObjects) Put(_ context.Context, key, _ string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = content
	return nil
}

func (m *mockObjects) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.data[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return content, nil
}

func (m *mockObjects) PresignGet(_ context.Context, key string) (string, error) {
	return "https://previews.example.com/" + key, nil
}

func (m *mockObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type chatFixture struct {
	svc      *ChatService
	store    storage.Storage
	replies  *mockReplies
	ingestor *mockIngestor
	objects  *mockObjects
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	store := storage.NewMemoryStorage()
	require.NoError(t, store.Init())
	replies := &mockReplies{reply: "Happy to help."}
	ingestor := newMockIngestor()
	objects := newMockObjects()
	return &chatFixture{
		svc:      NewChatService(store, replies, ingestor, objects),
		store:    store,
		replies:  replies,
		ingestor: ingestor,
		objects:  objects,
	}
}

func upload(name string, content string) model.PhotoUpload {
	return model.PhotoUpload{Name: name, Size: int64(len(content)), Content: []byte(content)}
}

func TestEnsureSession_SeedsGreeting(t *testing.T) {
	f := newChatFixture(t)

	session, err := f.svc.EnsureSession("sess-1")
	require.NoError(t, err)
	require.Equal(t, "sess-1", session.ID)
	require.Len(t, session.Messages, 1)
	require.Equal(t, model.SenderAssistant, session.Messages[0].Sender)
	require.Equal(t, greetingMessage, session.Messages[0].Content)

	// Resolving the same id again must not reseed.
	again, err := f.svc.EnsureSession("sess-1")
	require.NoError(t, err)
	require.Len(t, again.Messages, 1)
}

func TestEnsureSession_MintsIDWhenEmpty(t *testing.T) {
	f := newChatFixture(t)

	session, err := f.svc.EnsureSession("")
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
}

func TestSubmitMessage_EmptyInput_NoOp(t *testing.T) {
	f := newChatFixture(t)

	reply, err := f.svc.SubmitMessage(context.Background(), "sess-1", "   ")
	require.NoError(t, err)
	require.Nil(t, reply)
	require.Zero(t, f.replies.callCount)

	session, err := f.svc.GetSession("sess-1")
	require.NoError(t, err)
	require.Len(t, session.Messages, 1) // greeting only
}

func TestSubmitMessage_AppendsUserAndReply(t *testing.T) {
	f := newChatFixture(t)
	f.replies.reply = "X"

	reply, err := f.svc.SubmitMessage(context.Background(), "sess-1", "  my deck is rotting  ")
	require.NoError(t, err)
	require.Equal(t, "X", reply.Content)
	require.Equal(t, model.SenderAssistant, reply.Sender)

	session, err := f.svc.GetSession("sess-1")
	require.NoError(t, err)
	require.Len(t, session.Messages, 3)
	require.Equal(t, model.SenderUser, session.Messages[1].Sender)
	require.Equal(t, "my deck is rotting", session.Messages[1].Content)
	require.Equal(t, "X", session.Messages[2].Content)
}

func TestSubmitMessage_EmptyReply_GenericAck(t *testing.T) {
	f := newChatFixture(t)
	f.replies.reply = ""

	reply, err := f.svc.SubmitMessage(context.Background(), "sess-1", "hello")
	require.NoError(t, err)
	require.Equal(t, genericAck, reply.Content)
}

func TestSubmitMessage_WebhookFailure_Apology(t *testing.T) {
	f := newChatFixture(t)
	f.replies.err = errors.New("context deadline exceeded")

	reply, err := f.svc.SubmitMessage(context.Background(), "sess-1", "hello")
	require.NoError(t, err)
	require.Equal(t, apologyMessage, reply.Content)

	// Exactly one apology appended; the user turn stays in the log.
	session, err := f.svc.GetSession("sess-1")
	require.NoError(t, err)
	require.Len(t, session.Messages, 3)
	require.Equal(t, apologyMessage, session.Messages[2].Content)
}

func TestSubmitMessage_CapReached_NoNetworkCalls(t *testing.T) {
	f := newChatFixture(t)

	session, err := f.svc.EnsureSession("sess-1")
	require.NoError(t, err)
	for i := 0; i < maxUserMessages; i++ {
		session.Messages = append(session.Messages, model.Message{
			ID: fmt.Sprintf("u%d", i), SessionID: "sess-1",
			Sender: model.SenderUser, Content: fmt.Sprintf("msg %d", i),
		})
	}
	require.NoError(t, f.store.UpdateSession(session))

	reply, err := f.svc.SubmitMessage(context.Background(), "sess-1", "one more")
	require.NoError(t, err)
	require.Equal(t, capMessage, reply.Content)

	require.Zero(t, f.replies.callCount)
	ensure, uploadCalls, ingest := f.ingestor.calls()
	require.Zero(t, ensure)
	require.Zero(t, uploadCalls)
	require.Zero(t, ingest)

	// The rejected text never enters the log.
	session, err = f.svc.GetSession("sess-1")
	require.NoError(t, err)
	last := session.Messages[len(session.Messages)-1]
	require.Equal(t, capMessage, last.Content)
	require.Equal(t, maxUserMessages, session.UserMessageCount())
}

func TestSubmitMessage_PhotosClearedAndSnapshotted(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.AttachPhotos(context.Background(), "sess-1", []model.PhotoUpload{
		upload("roof.jpg", "aaaa"),
		upload("deck.jpg", "bbbb"),
	})
	require.NoError(t, err)

	reply, err := f.svc.SubmitMessage(context.Background(), "sess-1", "see photos")
	require.NoError(t, err)
	require.NotNil(t, reply)
	f.ingestor.waitIngest(t)

	session, err := f.svc.GetSession("sess-1")
	require.NoError(t, err)
	require.Empty(t, session.PendingPhotos)

	var userMsg *model.Message
	for i := range session.Messages {
		if session.Messages[i].Sender == model.SenderUser {
			userMsg = &session.Messages[i]
		}
	}
	require.NotNil(t, userMsg)
	require.Len(t, userMsg.Photos, 2)
	require.Equal(t, "roof.jpg", userMsg.Photos[0].Name)

	// Side channel ran ensure -> upload -> ingest with the photo binaries.
	ensure, uploadCalls, ingest := f.ingestor.calls()
	require.Equal(t, 1, ensure)
	require.Equal(t, 1, uploadCalls)
	require.Equal(t, 1, ingest)
	require.Equal(t, []string{"stored/0", "stored/1"}, f.ingestor.lastPaths)
	require.Equal(t, 2, f.ingestor.lastPhotoCount)

	// Webhook got the binaries too.
	require.Len(t, f.replies.photos[0], 2)
	require.Equal(t, 2, f.replies.payloads[0].PhotosCount)
}

func TestSubmitMessage_PhotosOnlyNoText(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.AttachPhotos(context.Background(), "sess-1", []model.PhotoUpload{upload("a.jpg", "x")})
	require.NoError(t, err)

	reply, err := f.svc.SubmitMessage(context.Background(), "sess-1", "")
	require.NoError(t, err)
	require.NotNil(t, reply)
	require.Equal(t, 1, f.replies.callCount)
}

func TestSubmitMessage_IngestFailureDoesNotAffectReply(t *testing.T) {
	f := newChatFixture(t)
	f.replies.reply = "still fine"
	f.ingestor.ingestErr = errors.New("backend down")

	reply, err := f.svc.SubmitMessage(context.Background(), "sess-1", "hello")
	require.NoError(t, err)
	require.Equal(t, "still fine", reply.Content)
	f.ingestor.waitIngest(t)
}

func TestSubmitMessage_HistoryExcludesCurrentTurn(t *testing.T) {
	f := newChatFixture(t)

	for i := 0; i < 3; i++ {
		_, err := f.svc.SubmitMessage(context.Background(), "sess-1", fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
	}

	// greeting + 2 prior turns (user+assistant each) = 5 prior messages.
	last := f.replies.payloads[len(f.replies.payloads)-1]
	require.Len(t, last.History, 5)
	for _, entry := range last.History {
		require.NotEqual(t, "turn 2", entry.Content)
	}
}

func TestSubmitMessage_HistoryWindowCapped(t *testing.T) {
	f := newChatFixture(t)

	session, err := f.svc.EnsureSession("sess-1")
	require.NoError(t, err)
	for i := 0; i < 25; i++ {
		session.Messages = append(session.Messages, model.Message{
			ID: fmt.Sprintf("a%d", i), SessionID: "sess-1",
			Sender: model.SenderAssistant, Content: fmt.Sprintf("note %d", i),
		})
	}
	require.NoError(t, f.store.UpdateSession(session))

	_, err = f.svc.SubmitMessage(context.Background(), "sess-1", "question")
	require.NoError(t, err)

	require.Len(t, f.replies.payloads[0].History, historyWindow)
}

func TestResetSession(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.SubmitMessage(context.Background(), "sess-1", "hello")
	require.NoError(t, err)
	_, err = f.svc.AttachPhotos(context.Background(), "sess-1", []model.PhotoUpload{upload("a.jpg", "x")})
	require.NoError(t, err)

	session, err := f.svc.ResetSession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, session.Messages, 1)
	require.Equal(t, model.SenderAssistant, session.Messages[0].Sender)
	require.Equal(t, greetingMessage, session.Messages[0].Content)
	require.Empty(t, session.PendingPhotos)
	require.Len(t, f.objects.deleted, 1)
}

func TestAttachPhotos_CapsAtTen(t *testing.T) {
	f := newChatFixture(t)

	var first []model.PhotoUpload
	for i := 0; i < 7; i++ {
		first = append(first, upload(fmt.Sprintf("p%d.jpg", i), "x"))
	}
	pending, err := f.svc.AttachPhotos(context.Background(), "sess-1", first)
	require.NoError(t, err)
	require.Len(t, pending, 7)

	var second []model.PhotoUpload
	for i := 0; i < 6; i++ {
		second = append(second, upload(fmt.Sprintf("q%d.jpg", i), "x"))
	}
	pending, err = f.svc.AttachPhotos(context.Background(), "sess-1", second)
	require.NoError(t, err)
	require.Len(t, pending, maxPendingPhotos)

	// Saturated staging drops everything, silently.
	pending, err = f.svc.AttachPhotos(context.Background(), "sess-1", []model.PhotoUpload{upload("z.jpg", "x")})
	require.NoError(t, err)
	require.Len(t, pending, maxPendingPhotos)
}

func TestRemovePendingPhoto(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.AttachPhotos(context.Background(), "sess-1", []model.PhotoUpload{
		upload("a.jpg", "x"),
		upload("b.jpg", "y"),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.RemovePendingPhoto(context.Background(), "sess-1", 0))

	session, err := f.svc.GetSession("sess-1")
	require.NoError(t, err)
	require.Len(t, session.PendingPhotos, 1)
	require.Equal(t, "b.jpg", session.PendingPhotos[0].Name)
	require.Len(t, f.objects.deleted, 1)

	// Out-of-range indexes are no-ops.
	require.NoError(t, f.svc.RemovePendingPhoto(context.Background(), "sess-1", 5))
	require.NoError(t, f.svc.RemovePendingPhoto(context.Background(), "sess-1", -1))

	session, err = f.svc.GetSession("sess-1")
	require.NoError(t, err)
	require.Len(t, session.PendingPhotos, 1)
}

func TestListSessions_NewestFirst(t *testing.T) {
	f := newChatFixture(t)

	for i, id := range []string{"sess-a", "sess-b", "sess-c"} {
		session, err := f.svc.EnsureSession(id)
		require.NoError(t, err)
		session.UpdatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		require.NoError(t, f.store.UpdateSession(session))
	}

	sessions, err := f.svc.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	require.Equal(t, "sess-c", sessions[0].ID)
	require.Equal(t, "sess-b", sessions[1].ID)
	require.Equal(t, "sess-a", sessions[2].ID)
}

func TestCleanupExpiredSessions(t *testing.T) {
	f := newChatFixture(t)

	stale, err := f.svc.EnsureSession("sess-stale")
	require.NoError(t, err)
	stale.UpdatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, f.store.UpdateSession(stale))

	_, err = f.svc.EnsureSession("sess-fresh")
	require.NoError(t, err)

	removed, err := f.svc.CleanupExpiredSessions(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = f.svc.GetSession("sess-stale")
	require.Error(t, err)
	_, err = f.svc.GetSession("sess-fresh")
	require.NoError(t, err)
}

func TestUpdateContact_NormalizesPhone(t *testing.T) {
	f := newChatFixture(t)

	session, err := f.svc.UpdateContact("sess-1", model.ContactDraft{
		FullName: "Pat Doe",
		Phone:    "(415) 555-2671",
	})
	require.NoError(t, err)
	require.Equal(t, "+14155552671", session.Contact.PhoneE164)

	// Unparseable phones keep only the raw form.
	session, err = f.svc.UpdateContact("sess-1", model.ContactDraft{Phone: "not a phone"})
	require.NoError(t, err)
	require.Empty(t, session.Contact.PhoneE164)
	require.Equal(t, "not a phone", session.Contact.Phone)
}

func TestJobItems(t *testing.T) {
	f := newChatFixture(t)

	session, err := f.svc.AddJobItem("sess-1", "Gutter cleaning", decimal.NewFromInt(150))
	require.NoError(t, err)
	session, err = f.svc.AddJobItem("sess-1", "Roof patch", decimal.NewFromFloat(425.50))
	require.NoError(t, err)
	require.Len(t, session.JobItems, 2)
	require.True(t, model.JobsTotal(session.JobItems).Equal(decimal.NewFromFloat(575.50)))

	_, err = f.svc.AddJobItem("sess-1", "Bogus", decimal.NewFromInt(-5))
	require.Error(t, err)

	session, err = f.svc.RemoveJobItem("sess-1", session.JobItems[0].ID)
	require.NoError(t, err)
	require.Len(t, session.JobItems, 1)
	require.Equal(t, "Roof patch", session.JobItems[0].Name)
}
