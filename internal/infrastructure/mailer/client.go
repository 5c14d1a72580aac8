// Package mailer sends transactional email through a Mandrill-compatible
// messages/send API. Delivery failures are surfaced to callers but are never
// fatal to an enclosing request.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rokthenats/karting-registry/internal/application"
	"github.com/rokthenats/karting-registry/internal/config"
)

type HTTPMailer struct {
	apiKey     string
	fromEmail  string
	fromName   string
	baseURL    string
	httpClient *http.Client
}

func NewMailer(cfg config.MailerConfig) application.Mailer {
	return &HTTPMailer{
		apiKey:    cfg.APIKey,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		baseURL:   cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

type sendRequest struct {
	Key     string      `json:"key"`
	Message sendMessage `json:"message"`
}

type sendMessage struct {
	To        []recipient `json:"to"`
	FromEmail string      `json:"from_email"`
	FromName  string      `json:"from_name,omitempty"`
	Subject   string      `json:"subject"`
	HTML      string      `json:"html"`
}

type recipient struct {
	Email string `json:"email"`
}

type sendResult struct {
	Email        string `json:"email"`
	Status       string `json:"status"`
	RejectReason string `json:"reject_reason"`
}

func (m *HTTPMailer) Send(ctx context.Context, to, subject, html string) error {
	payload := sendRequest{
		Key: m.apiKey,
		Message: sendMessage{
			To:        []recipient{{Email: to}},
			FromEmail: m.fromEmail,
			FromName:  m.fromName,
			Subject:   subject,
			HTML:      html,
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling json: %w", err)
	}

	url := m.baseURL + "/messages/send"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &MailerError{
			Message:    string(body),
			StatusCode: resp.StatusCode,
		}
	}

	var results []sendResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return fmt.Errorf("error decoding json response: %w", err)
	}

	for _, r := range results {
		if r.Status == "rejected" || r.Status == "invalid" {
			return &MailerError{
				Message:    fmt.Sprintf("delivery to %s %s: %s", r.Email, r.Status, r.RejectReason),
				StatusCode: resp.StatusCode,
			}
		}
	}

	return nil
}
