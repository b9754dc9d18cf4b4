package dispatch

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stagehand-app/stagehand/internal/core"
	"github.com/stagehand-app/stagehand/internal/domain/model"
	apperrors "github.com/stagehand-app/stagehand/internal/errors"
)

// SecretHeader carries the shared secret authenticating service-to-service
// dispatch calls. Distinct from any end-user session auth.
const SecretHeader = "X-Dispatch-Token"

const maxPayloadBytes = 32 << 20 // raw media rides along

// wirePayload is the JSON shape of a dispatched completion. Media bytes
// ride as base64 via encoding/json's []byte handling.
type wirePayload struct {
	DispatchID       string              `json:"dispatch_id"`
	JobID            string              `json:"job_id"`
	JobKind          string              `json:"job_kind"`
	ActorID          string              `json:"actor_id"`
	Notes            string              `json:"notes,omitempty"`
	Photos           []wireMedia         `json:"photos,omitempty"`
	Signature        *wireMedia          `json:"signature,omitempty"`
	NotifyRecipients []string            `json:"notify_recipients,omitempty"`
	Recipient        wirePayloadContact  `json:"recipient"`
	VenueID          string              `json:"venue_id,omitempty"`
	CompletedAt      time.Time           `json:"completed_at"`
}

type wireMedia struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

type wirePayloadContact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func toWire(p *model.BackgroundCompletionPayload) wirePayload {
	wire := wirePayload{
		DispatchID:       p.DispatchID,
		JobID:            p.JobID,
		JobKind:          string(p.JobKind),
		ActorID:          p.ActorID,
		Notes:            p.Notes,
		NotifyRecipients: p.NotifyRecipients,
		Recipient:        wirePayloadContact{ID: p.Recipient.ID, Name: p.Recipient.Name, Email: p.Recipient.Email},
		VenueID:          p.VenueID,
		CompletedAt:      p.CompletedAt,
	}
	for _, photo := range p.Photos {
		wire.Photos = append(wire.Photos, wireMedia(photo))
	}
	if p.Signature != nil {
		sig := wireMedia(*p.Signature)
		wire.Signature = &sig
	}
	return wire
}

func fromWire(w wirePayload) *model.BackgroundCompletionPayload {
	payload := &model.BackgroundCompletionPayload{
		DispatchID:       w.DispatchID,
		JobID:            w.JobID,
		JobKind:          model.ParseJobKind(w.JobKind),
		ActorID:          w.ActorID,
		Notes:            w.Notes,
		NotifyRecipients: w.NotifyRecipients,
		Recipient:        model.Recipient{ID: w.Recipient.ID, Name: w.Recipient.Name, Email: w.Recipient.Email},
		VenueID:          w.VenueID,
		CompletedAt:      w.CompletedAt,
	}
	for _, photo := range w.Photos {
		payload.Photos = append(payload.Photos, model.MediaPayload(photo))
	}
	if w.Signature != nil {
		sig := model.MediaPayload(*w.Signature)
		payload.Signature = &sig
	}
	return payload
}

// HTTPClient dispatches payloads to a remote worker over HTTP.
type HTTPClient struct {
	endpoint string
	secret   string
	client   *http.Client
}

var _ core.Dispatcher = (*HTTPClient)(nil)

// HTTPClientOptions bundles dependencies for NewHTTPClient.
type HTTPClientOptions struct {
	Endpoint string
	Secret   string
	Timeout  time.Duration
	Client   *http.Client
}

// NewHTTPClient builds an HTTP dispatcher.
func NewHTTPClient(opts HTTPClientOptions) (*HTTPClient, error) {
	if opts.Endpoint == "" {
		return nil, apperrors.Validation("dispatch endpoint is required")
	}
	if opts.Secret == "" {
		return nil, apperrors.Validation("dispatch shared secret is required")
	}

	hc := opts.Client
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &HTTPClient{
		endpoint: opts.Endpoint,
		secret:   opts.Secret,
		client:   hc,
	}, nil
}

// Dispatch posts the payload as a one-shot authenticated call.
func (c *HTTPClient) Dispatch(ctx context.Context, payload *model.BackgroundCompletionPayload) error {
	if payload == nil {
		return apperrors.Validation("dispatch payload is required")
	}

	body, err := json.Marshal(toWire(payload))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode dispatch payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "create dispatch request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SecretHeader, c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain dispatch response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusAccepted:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.Unavailable("dispatch endpoint " + resp.Status)
	default:
		return apperrors.External("dispatch endpoint " + resp.Status)
	}
}

// Handler accepts dispatched payloads and enqueues them on the given sink.
// Requests missing the shared secret are rejected before the body is read.
func Handler(secret string, sink core.Dispatcher, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "dispatch_handler")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		provided := r.Header.Get(SecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var wire wirePayload
		if err := json.NewDecoder(io.LimitReader(r.Body, maxPayloadBytes)).Decode(&wire); err != nil {
			http.Error(w, "malformed payload", http.StatusBadRequest)
			return
		}
		if wire.JobID == "" {
			http.Error(w, "job_id is required", http.StatusBadRequest)
			return
		}

		payload := fromWire(wire)
		if err := sink.Dispatch(r.Context(), payload); err != nil {
			logger.ErrorContext(r.Context(), "dispatch enqueue failed",
				"dispatch_id", payload.DispatchID,
				"job_id", payload.JobID,
				"error", err,
			)
			if apperrors.IsUnavailable(err) {
				http.Error(w, "queue full", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, "dispatch failed", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	})
}
