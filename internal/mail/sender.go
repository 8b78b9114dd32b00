package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

var ErrInvalidRecipient = errors.New("invalid recipient email")

// Sender delivers one HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

type BrevoConfig struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	Timeout     time.Duration
	// Endpoint overrides the Brevo API URL, mostly for tests.
	Endpoint string
}

type BrevoSender struct {
	cfg    BrevoConfig
	client *http.Client
	logger *slog.Logger
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

func NewBrevoSender(cfg BrevoConfig, logger *slog.Logger) *BrevoSender {
	if cfg.Endpoint == "" {
		cfg.Endpoint = brevoEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &BrevoSender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (s *BrevoSender) Send(ctx context.Context, to, subject, html string) error {
	at := strings.Index(to, "@")
	if at <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidRecipient, to)
	}

	payload := brevoPayload{
		Sender:      map[string]string{"name": s.cfg.SenderName, "email": s.cfg.SenderEmail},
		To:          []map[string]string{{"email": to, "name": to[:at]}},
		Subject:     subject,
		HTMLContent: html,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", s.cfg.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	s.logger.Debug("Mail sent", "to", to, "subject", subject)
	return nil
}

// LogSender only logs messages. Used when no mail provider is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, subject, html string) error {
	s.logger.InfoContext(ctx, "Mail delivery disabled, message logged",
		"to", to,
		"subject", subject,
		"size", len(html))
	return nil
}
