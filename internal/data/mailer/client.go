// Package mailer delivers outbound notifications through a transactional
// mail HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stagehand-app/stagehand/config"
	"github.com/stagehand-app/stagehand/internal/core"
	apperrors "github.com/stagehand-app/stagehand/internal/errors"
)

const maxErrorBodyBytes = 4 << 10

// Client posts messages to the mail API. When disabled it logs and drops
// sends instead of failing, so a missing mail configuration never blocks
// the lifecycle services.
type Client struct {
	enabled bool
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
	logger  *slog.Logger
}

var _ core.Mailer = (*Client)(nil)

// Options bundles dependencies for NewClient.
type Options struct {
	Config config.MailerConfig
	Logger *slog.Logger
	Client *http.Client
}

// NewClient builds a mail API client from a sanitized config.
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hc := opts.Client
	if hc == nil {
		hc = &http.Client{Timeout: opts.Config.Timeout}
	}

	return &Client{
		enabled: opts.Config.Enabled,
		baseURL: opts.Config.BaseURL,
		apiKey:  opts.Config.APIKey,
		from:    opts.Config.From,
		client:  hc,
		logger:  logger.With("component", "mailer"),
	}
}

type wireAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

type wireMessage struct {
	From        string           `json:"from"`
	To          []string         `json:"to"`
	Subject     string           `json:"subject"`
	Body        string           `json:"body"`
	Attachments []wireAttachment `json:"attachments,omitempty"`
}

// Send posts a single message to the mail API.
func (c *Client) Send(ctx context.Context, msg core.Message) error {
	if len(msg.To) == 0 {
		return apperrors.Validation("message requires at least one recipient")
	}

	if !c.enabled {
		c.logger.InfoContext(ctx, "mailer disabled, dropping message",
			"to", strings.Join(msg.To, ","),
			"subject", msg.Subject,
		)
		return nil
	}

	wire := wireMessage{
		From:    c.from,
		To:      msg.To,
		Subject: msg.Subject,
		Body:    msg.Body,
	}
	for _, att := range msg.Attachments {
		wire.Attachments = append(wire.Attachments, wireAttachment{
			Filename:    att.Filename,
			ContentType: att.ContentType,
			Data:        base64.StdEncoding.EncodeToString(att.Data),
		})
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode mail payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "create mail request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail api request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close mail response body failed", "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp)
	}

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain mail response body: %w", err)
	}
	return nil
}

func classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	detail := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.RateLimited(fmt.Sprintf("mail api rate limited: %s", detail))
	case resp.StatusCode >= 500:
		return apperrors.Unavailable(fmt.Sprintf("mail api %s: %s", resp.Status, detail))
	default:
		return apperrors.External(fmt.Sprintf("mail api %s: %s", resp.Status, detail))
	}
}
