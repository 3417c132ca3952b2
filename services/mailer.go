package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultEmailBaseURL = "https://api.resend.com"

// HTTPMailer sends transactional email via an HTTP email API.
type HTTPMailer struct {
	httpClient *http.Client
	apiKey     string
	from       string
	baseURL    string
}

// NewHTTPMailer creates a mailer with an injectable http.Client. If nil is
// passed, a default client with a sensible timeout is used.
func NewHTTPMailer(apiKey, from string, client *http.Client) *HTTPMailer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPMailer{
		httpClient: client,
		apiKey:     apiKey,
		from:       from,
		baseURL:    defaultEmailBaseURL,
	}
}

// SetBaseURL overrides the email API endpoint. Used by tests.
func (m *HTTPMailer) SetBaseURL(baseURL string) {
	m.baseURL = baseURL
}

func (m *HTTPMailer) Send(ctx context.Context, to, subject, html string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"from":    m.from,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sending email: %s: %s", resp.Status, body)
	}
	return nil
}
