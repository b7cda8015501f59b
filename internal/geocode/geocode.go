package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"homefront-backend/internal/config"
	"homefront-backend/internal/model"
	"homefront-backend/internal/utils"
)

// Client resolves a free-text address query against the autocomplete
// collaborator. Every caller must tolerate it failing and fall back to the
// raw text the visitor typed.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg config.GeocodeConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: utils.NewHTTPClient(cfg.Timeout),
	}
}

type suggestResponse struct {
	Results []struct {
		Formatted string `json:"formatted"`
		Street    string `json:"street"`
		City      string `json:"city"`
		State     string `json:"state"`
		Zip       string `json:"zip"`
	} `json:"results"`
}

// Suggest returns zero or one structured address for the query. A nil
// address with nil error means no match.
func (c *Client) Suggest(ctx context.Context, query string) (*model.Address, error) {
	if c.baseURL == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s?q=%s&key=%s", c.baseURL, url.QueryEscape(query), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create suggest request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("suggest request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("suggest returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read suggest response: %w", err)
	}

	var out suggestResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse suggest response: %w", err)
	}
	if len(out.Results) == 0 {
		return nil, nil
	}

	first := out.Results[0]
	return &model.Address{
		Formatted: first.Formatted,
		Street:    first.Street,
		City:      first.City,
		State:     first.State,
		Zip:       first.Zip,
	}, nil
}
