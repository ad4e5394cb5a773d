package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/ports/adapter"
)

var _ adapter.EmailSender = (*ResendSender)(nil)

// ResendSender delivers mail through the Resend HTTP API.
type ResendSender struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
}

func NewResendSender(apiKey, from, baseURL string) *ResendSender {
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	return &ResendSender{
		apiKey:  apiKey,
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *ResendSender) Name() string { return "resend" }

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Name    string `json:"name"`
}

func (s *ResendSender) Send(ctx context.Context, to, subject, html string) error {
	jsonData, err := json.Marshal(resendRequest{From: s.from, To: []string{to}, Subject: subject, HTML: html})
	if err != nil {
		return fmt.Errorf("failed to marshal request data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: resend: %v", domain.ErrDownstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("%w: resend: read body: %v", domain.ErrDownstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var r resendResponse
		_ = json.Unmarshal(body, &r)
		msg := r.Message
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return fmt.Errorf("%w: resend: status %d: %s", domain.ErrDownstream, resp.StatusCode, msg)
	}
	return nil
}
