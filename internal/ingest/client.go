package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"homefront-backend/internal/config"
	"homefront-backend/internal/model"
	"homefront-backend/internal/utils"
)

// Client talks to the backend storage API that mirrors chat activity and
// lead requests. Every caller treats it as best-effort; the client itself
// reports failures normally and leaves the swallowing to the call site.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.BackendConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: utils.NewHTTPClient(cfg.Timeout),
	}
}

type ensureRequestBody struct {
	SessionID string `json:"session_id"`
	Source    string `json:"source"`
}

type ensureRequestResponse struct {
	RequestID string `json:"request_id"`
}

// EnsureRequest creates or finds the backend-side request record for a
// session and returns its id.
func (c *Client) EnsureRequest(ctx context.Context, sessionID, source string) (string, error) {
	var out ensureRequestResponse
	err := c.postJSON(ctx, "/requests/ensure", ensureRequestBody{
		SessionID: sessionID,
		Source:    source,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.RequestID == "" {
		return "", fmt.Errorf("ensure-request returned empty request id")
	}
	return out.RequestID, nil
}

type uploadResult struct {
	StoragePath string `json:"storage_path"`
}

// UploadPhotos ships photo binaries to backend storage and returns their
// storage paths in input order.
func (c *Client) UploadPhotos(ctx context.Context, requestID, origin string, photos []model.PhotoUpload, sessionID string) ([]string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("request_id", requestID); err != nil {
		return nil, err
	}
	if err := writer.WriteField("origin", origin); err != nil {
		return nil, err
	}
	if err := writer.WriteField("session_id", sessionID); err != nil {
		return nil, err
	}
	for _, photo := range photos {
		part, err := writer.CreateFormFile("files", photo.Name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(photo.Content); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upload returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}

	var results []uploadResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("parse upload response: %w", err)
	}

	paths := make([]string, 0, len(results))
	for _, r := range results {
		paths = append(paths, r.StoragePath)
	}
	return paths, nil
}

type ingestMessageBody struct {
	SessionID    string   `json:"session_id"`
	Sender       string   `json:"sender"`
	Content      string   `json:"content"`
	PhotosCount  int      `json:"photos_count"`
	StoragePaths []string `json:"storage_paths,omitempty"`
}

// IngestMessage mirrors one chat turn into backend storage.
func (c *Client) IngestMessage(ctx context.Context, sessionID, sender, content string, photosCount int, storagePaths []string) error {
	return c.postJSON(ctx, "/messages", ingestMessageBody{
		SessionID:    sessionID,
		Sender:       sender,
		Content:      content,
		PhotosCount:  photosCount,
		StoragePaths: storagePaths,
	}, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s returned status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
