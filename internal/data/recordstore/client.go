// Package recordstore implements the RecordStore port against the remote
// work-management API. The remote is rate-limited and loosely typed: field
// values arrive as string labels inside variable JSON shapes, and some
// errors arrive as HTTP 200 with an error payload rather than a status code.
package recordstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/stagehand-app/stagehand/config"
	"github.com/stagehand-app/stagehand/internal/core"
	"github.com/stagehand-app/stagehand/internal/domain/model"
	apperrors "github.com/stagehand-app/stagehand/internal/errors"
)

const maxErrorBodyBytes = 4 << 10

// Client talks to the external record store over HTTP.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

var _ core.RecordStore = (*Client)(nil)

// Options bundles dependencies for NewClient.
type Options struct {
	Config config.RecordStoreConfig
	Logger *slog.Logger

	// Client overrides the HTTP client (tests). When nil one is built from
	// the config, including the OAuth2 transport if configured.
	Client *http.Client
}

// NewClient builds a record store client. Callers should pass a sanitized
// config.
func NewClient(opts Options) (*Client, error) {
	cfg := opts.Config
	if cfg.BaseURL == "" {
		return nil, apperrors.Validation("record store base url is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "record_store")

	hc := opts.Client
	if hc == nil {
		if cfg.UseOAuth() {
			cc := clientcredentials.Config{
				ClientID:     cfg.OAuthClientID,
				ClientSecret: cfg.OAuthClientSecret,
				TokenURL:     cfg.OAuthTokenURL,
			}
			hc = cc.Client(context.Background())
			hc.Timeout = cfg.Timeout
		} else {
			hc = &http.Client{Timeout: cfg.Timeout}
		}
	}

	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  hc,
		logger:  logger,
	}, nil
}

// GetJob reads a single job by its opaque external ID.
func (c *Client) GetJob(ctx context.Context, id string) (*model.Job, error) {
	if id == "" {
		return nil, apperrors.Validation("job id is required")
	}

	doc, err := c.get(ctx, "/api/v1/jobs/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	job, err := parseJob(searchAny("job", doc))
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeExternal, "malformed job record %s", id)
	}
	return job, nil
}

// ListJobsDue returns jobs scheduled within the window.
func (c *Client) ListJobsDue(ctx context.Context, window core.JobWindow) ([]*model.Job, error) {
	q := url.Values{}
	q.Set("scheduled_from", window.From.Format("2006-01-02"))
	q.Set("scheduled_to", window.To.Format("2006-01-02"))

	doc, err := c.get(ctx, "/api/v1/jobs", q)
	if err != nil {
		return nil, err
	}

	raw, ok := searchAny("jobs", doc).([]any)
	if !ok {
		return nil, apperrors.External("malformed job list response")
	}

	jobs := make([]*model.Job, 0, len(raw))
	for _, entry := range raw {
		job, perr := parseJob(entry)
		if perr != nil {
			// A single malformed record must not sink the whole scan.
			c.logger.WarnContext(ctx, "skipping malformed job record", "error", perr)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// SetEscalationLevel overwrites the job's escalation level field.
func (c *Client) SetEscalationLevel(ctx context.Context, jobID string, level int) error {
	body := map[string]any{
		"fields": map[string]any{"escalation_level": level},
	}
	_, err := c.send(ctx, http.MethodPut, "/api/v1/jobs/"+url.PathEscape(jobID)+"/fields", body)
	return err
}

// CompleteJob performs the single multi-field completion write.
func (c *Client) CompleteJob(ctx context.Context, jobID, notes string, completedAt time.Time) error {
	body := map[string]any{
		"fields": map[string]any{
			"notes":        notes,
			"completed_at": completedAt.UTC().Format(time.RFC3339),
			"status":       string(model.JobStatusDone),
		},
	}
	_, err := c.send(ctx, http.MethodPut, "/api/v1/jobs/"+url.PathEscape(jobID)+"/fields", body)
	return err
}

// MarkWarehouseComplete flips the warehouse sub-area status for a job.
func (c *Client) MarkWarehouseComplete(ctx context.Context, jobID string) error {
	_, err := c.send(ctx, http.MethodPost, "/api/v1/warehouse/jobs/"+url.PathEscape(jobID)+"/complete", map[string]any{})
	return err
}

// AttachFile uploads a photo or signature to the job record. The request
// body is rebuilt from the raw payload on every call, so retried uploads
// never replay a consumed stream.
func (c *Client) AttachFile(ctx context.Context, jobID string, file model.MediaPayload) error {
	if len(file.Data) == 0 {
		return apperrors.Validation("file payload is empty")
	}
	body := map[string]any{
		"filename":     file.Filename,
		"content_type": file.ContentType,
		"data":         base64.StdEncoding.EncodeToString(file.Data),
	}
	_, err := c.send(ctx, http.MethodPost, "/api/v1/jobs/"+url.PathEscape(jobID)+"/files", body)
	return err
}

// GetMutePreference reads a recipient's mute policy, fresh on every call.
func (c *Client) GetMutePreference(ctx context.Context, recipientID string) (*model.MutePreference, error) {
	doc, err := c.get(ctx, "/api/v1/crew/"+url.PathEscape(recipientID)+"/preferences", nil)
	if err != nil {
		return nil, err
	}

	pref := &model.MutePreference{
		MutedJobIDs: searchString("preferences.muted_job_ids", doc),
	}
	if raw := searchString("preferences.muted_until", doc); raw != "" {
		t, perr := time.Parse("2006-01-02", raw)
		if perr != nil {
			return nil, apperrors.Wrapf(perr, apperrors.ErrCodeExternal, "malformed muted_until date %q", raw)
		}
		pref.MutedUntil = &t
	}
	return pref, nil
}

// GetVenueName resolves a venue's display name.
func (c *Client) GetVenueName(ctx context.Context, venueID string) (string, error) {
	doc, err := c.get(ctx, "/api/v1/venues/"+url.PathEscape(venueID), nil)
	if err != nil {
		return "", err
	}
	return searchString("venue.name", doc), nil
}

// GetJobLineItems reads the equipment lines for a job.
func (c *Client) GetJobLineItems(ctx context.Context, jobID string) ([]model.LineItem, error) {
	doc, err := c.get(ctx, "/api/v1/jobs/"+url.PathEscape(jobID)+"/items", nil)
	if err != nil {
		return nil, err
	}

	raw, ok := searchAny("items", doc).([]any)
	if !ok {
		return nil, nil
	}

	items := make([]model.LineItem, 0, len(raw))
	for _, entry := range raw {
		items = append(items, model.LineItem{
			Name:     searchString("name", entry),
			Quantity: searchInt("quantity", entry),
		})
	}
	return items, nil
}

// Ping checks reachability of the remote store.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "/api/v1/ping", nil)
	return err
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (any, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "create record store request")
	}
	return c.do(req)
}

func (c *Client) send(ctx context.Context, method, path string, body any) (any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode record store payload")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "create record store request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (any, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Transport errors (timeouts, resets) keep their concrete type so
		// the retry classifier can inspect them.
		return nil, fmt.Errorf("record store %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close record store response body failed", "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp)
	}

	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExternal, "decode record store response")
	}

	// The remote reports some failures, rate limits included, inside a 200
	// response body.
	if msg := searchString("error", doc); msg != "" {
		return nil, classifyErrorMessage(msg)
	}

	return doc, nil
}

func classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	detail := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.RateLimited(fmt.Sprintf("record store rate limited: %s", detail))
	case resp.StatusCode >= 500:
		return apperrors.Unavailable(fmt.Sprintf("record store %s: %s", resp.Status, detail))
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound("record not found")
	case resp.StatusCode == http.StatusRequestTimeout:
		return &apperrors.AppError{Code: apperrors.ErrCodeTimeout, Message: "record store request timed out"}
	default:
		return apperrors.External(fmt.Sprintf("record store %s: %s", resp.Status, detail))
	}
}

func classifyErrorMessage(msg string) error {
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "rate limit") || strings.Contains(lowered, "too many requests") {
		return apperrors.RateLimited("record store rate limited: " + msg)
	}
	return apperrors.External("record store error: " + msg)
}

// parseJob maps a loosely-shaped remote job document onto the closed Job
// type. Unrecognised labels become the unknown enum values rather than
// errors; a missing ID or scheduled time is malformed.
func parseJob(doc any) (*model.Job, error) {
	if doc == nil {
		return nil, fmt.Errorf("missing job document")
	}

	id := searchString("id", doc)
	if id == "" {
		return nil, fmt.Errorf("job record missing id")
	}

	scheduledRaw := searchString("fields.scheduled_at", doc)
	scheduledAt, err := time.Parse(time.RFC3339, scheduledRaw)
	if err != nil {
		return nil, fmt.Errorf("job %s: malformed scheduled_at %q: %w", id, scheduledRaw, err)
	}

	job := &model.Job{
		ID:              id,
		Kind:            model.ParseJobKind(searchString("fields.kind", doc)),
		Status:          model.ParseJobStatus(searchString("fields.status", doc)),
		ScheduledAt:     scheduledAt,
		EscalationLevel: searchInt("fields.escalation_level", doc),
		VenueID:         searchString("fields.venue_id", doc),
		Notes:           searchString("fields.notes", doc),
		Assignee: model.Recipient{
			ID:    searchString("assignee.id", doc),
			Name:  searchString("assignee.name", doc),
			Email: searchString("assignee.email", doc),
		},
	}

	if completedRaw := searchString("fields.completed_at", doc); completedRaw != "" {
		completedAt, perr := time.Parse(time.RFC3339, completedRaw)
		if perr != nil {
			return nil, fmt.Errorf("job %s: malformed completed_at %q: %w", id, completedRaw, perr)
		}
		job.CompletedAt = &completedAt
	}

	return job, nil
}

func searchAny(expr string, doc any) any {
	result, err := jmespath.Search(expr, doc)
	if err != nil {
		return nil
	}
	return result
}

func searchString(expr string, doc any) string {
	if s, ok := searchAny(expr, doc).(string); ok {
		return s
	}
	return ""
}

func searchInt(expr string, doc any) int {
	if f, ok := searchAny(expr, doc).(float64); ok {
		return int(f)
	}
	return 0
}
