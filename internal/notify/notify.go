package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"homefront-backend/internal/config"
	"homefront-backend/internal/model"
	"homefront-backend/internal/utils"
	"homefront-backend/pkg/logger"
)

// LeadDocument is the export payload for a submitted request.
type LeadDocument struct {
	SessionID string              `json:"session_id"`
	Contact   model.ContactDraft  `json:"contact"`
	JobItems  []model.JobLineItem `json:"job_items"`
	JobsTotal decimal.Decimal     `json:"jobs_total"`
	Source    string              `json:"source"`
}

// Notifier posts to the fire-and-forget side-channels. Methods return errors
// for tests; production callers run them best-effort and only log.
type Notifier struct {
	smsURL       string
	messengerURL string
	docExportURL string
	httpClient   *http.Client
}

func NewNotifier(cfg config.NotifyConfig) *Notifier {
	return &Notifier{
		smsURL:       cfg.SMSWebhookURL,
		messengerURL: cfg.MessengerWebhookURL,
		docExportURL: cfg.DocExportURL,
		httpClient:   utils.NewHTTPClient(cfg.Timeout),
	}
}

func (n *Notifier) SendSMS(ctx context.Context, to, body string) error {
	return n.post(ctx, n.smsURL, map[string]string{
		"to":   to,
		"body": body,
	})
}

func (n *Notifier) SendMessenger(ctx context.Context, text string) error {
	return n.post(ctx, n.messengerURL, map[string]string{
		"text": text,
	})
}

func (n *Notifier) ExportDocument(ctx context.Context, doc LeadDocument) error {
	return n.post(ctx, n.docExportURL, doc)
}

func (n *Notifier) post(ctx context.Context, url string, payload any) error {
	if url == "" {
		// Channel not configured; nothing to notify.
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification returned status %d", resp.StatusCode)
	}
	return nil
}

// BestEffort runs fn and logs the failure instead of returning it.
func BestEffort(channel string, fn func() error) {
	if err := fn(); err != nil {
		logger.WithFields(logrus.Fields{"channel": channel}).Warnf("Notification failed: %v", err)
	}
}
