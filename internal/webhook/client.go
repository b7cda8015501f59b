package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"homefront-backend/internal/config"
	"homefront-backend/internal/model"
	"homefront-backend/internal/utils"
)

// Payload is one conversation turn sent to the third-party chat webhook.
type Payload struct {
	Sender      string               `json:"sender"`
	Message     string               `json:"message"`
	PhotosCount int                  `json:"photos_count"`
	SessionID   string               `json:"session_id"`
	History     []model.HistoryEntry `json:"history"`
	Contact     model.ContactDraft   `json:"contact"`
	JobItems    []model.JobLineItem  `json:"job_items"`
	JobsTotal   decimal.Decimal      `json:"jobs_total"`
	Source      string               `json:"source"`
}

type Client struct {
	url              string
	httpClient       *http.Client
	jsonTimeout      time.Duration
	multipartTimeout time.Duration
}

func NewClient(cfg config.ChatConfig) *Client {
	return &Client{
		url: cfg.WebhookURL,
		// Per-request deadlines come from context; the client timeout is a
		// backstop above the longest encode path.
		httpClient:       utils.NewHTTPClient(cfg.MultipartTimeout + 5*time.Second),
		jsonTimeout:      cfg.JSONTimeout,
		multipartTimeout: cfg.MultipartTimeout,
	}
}

// Ask submits one turn and returns the extracted reply string. An empty
// reply with nil error means the response carried no recognized reply field;
// the caller supplies its fallback. Photos switch the encoding to multipart
// and widen the timeout.
func (c *Client) Ask(ctx context.Context, payload Payload, photos []model.PhotoUpload) (string, error) {
	hasPhotos := len(photos) > 0

	var (
		body        io.Reader
		contentType string
		timeout     time.Duration
		err         error
	)
	if hasPhotos {
		body, contentType, err = encodeMultipart(payload, photos)
		timeout = c.multipartTimeout
	} else {
		body, contentType, err = encodeJSON(payload)
		timeout = c.jsonTimeout
	}
	if err != nil {
		return "", fmt.Errorf("encode webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read webhook response: %w", err)
	}

	return ParseReply(raw), nil
}

func encodeJSON(payload Payload) (io.Reader, string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

func encodeMultipart(payload Payload, photos []model.PhotoUpload) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("payload", string(data)); err != nil {
		return nil, "", err
	}

	for i, photo := range photos {
		part, err := writer.CreateFormFile(fmt.Sprintf("photo_%d", i), photo.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(photo.Content); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}

// ParseReply extracts the reply string from the webhook response. The
// upstream answers with either a single object or a one-element array, and
// the field is named reply_message or message depending on the path that
// produced it; both shapes are accepted as-is. Unrecognized bodies yield "".
func ParseReply(raw []byte) string {
	var element map[string]json.RawMessage

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil || len(list) == 0 {
			return ""
		}
		element = list[0]
	} else {
		if err := json.Unmarshal(trimmed, &element); err != nil {
			return ""
		}
	}

	for _, field := range []string{"reply_message", "message"} {
		rawField, ok := element[field]
		if !ok {
			continue
		}
		var reply string
		if err := json.Unmarshal(rawField, &reply); err == nil && reply != "" {
			return reply
		}
	}

	return ""
}
