package recordstore

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagehand-app/stagehand/config"
	"github.com/stagehand-app/stagehand/internal/core"
	"github.com/stagehand-app/stagehand/internal/domain/model"
	apperrors "github.com/stagehand-app/stagehand/internal/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{
		Config: config.RecordStoreConfig{BaseURL: srv.URL, Token: "test-token"},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Client: srv.Client(),
	})
	require.NoError(t, err)
	return client
}

func jobDoc(id string) map[string]any {
	return map[string]any{
		"id": id,
		"fields": map[string]any{
			"status":           "Confirmed",
			"kind":             "Delivery",
			"scheduled_at":     "2025-03-10T08:00:00Z",
			"escalation_level": float64(1),
			"venue_id":         "venue-9",
		},
		"assignee": map[string]any{
			"id":    "crew-1",
			"name":  "Sam",
			"email": "sam@example.com",
		},
	}
}

func TestGetJobParsesLooseFields(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/jobs/job-1", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"job": jobDoc("job-1")})
	}))

	job, err := client.GetJob(context.Background(), "job-1")
	require.NoError(t, err)

	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, model.JobStatusConfirmed, job.Status)
	assert.Equal(t, model.JobKindDelivery, job.Kind)
	assert.Equal(t, 1, job.EscalationLevel)
	assert.Equal(t, "crew-1", job.Assignee.ID)
	assert.Equal(t, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), job.ScheduledAt)
}

func TestGetJobUnknownLabelsFallBack(t *testing.T) {
	doc := jobDoc("job-1")
	doc["fields"].(map[string]any)["status"] = "archived"
	doc["fields"].(map[string]any)["kind"] = "office"

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"job": doc})
	}))

	job, err := client.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusUnknown, job.Status)
	assert.Equal(t, model.JobKindUnknown, job.Kind)
}

func TestRateLimitInsideOKResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// The remote reports rate limiting inside a 200 body.
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "Rate limit exceeded, try again later"})
	}))

	_, err := client.GetJob(context.Background(), "job-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimited(err))
}

func TestErrorPayloadInsideOKResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "field is read-only"})
	}))

	err := client.SetEscalationLevel(context.Background(), "job-1", 2)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeExternal, apperrors.GetCode(err))
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode apperrors.ErrorCode
	}{
		{name: "too many requests", status: http.StatusTooManyRequests, wantCode: apperrors.ErrCodeRateLimited},
		{name: "server error", status: http.StatusInternalServerError, wantCode: apperrors.ErrCodeUnavailable},
		{name: "bad gateway", status: http.StatusBadGateway, wantCode: apperrors.ErrCodeUnavailable},
		{name: "not found", status: http.StatusNotFound, wantCode: apperrors.ErrCodeNotFound},
		{name: "request timeout", status: http.StatusRequestTimeout, wantCode: apperrors.ErrCodeTimeout},
		{name: "forbidden", status: http.StatusForbidden, wantCode: apperrors.ErrCodeExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))

			_, err := client.GetJob(context.Background(), "job-1")
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.GetCode(err))
		})
	}
}

func TestListJobsDueSkipsMalformedRecords(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-03-09", r.URL.Query().Get("scheduled_from"))
		assert.Equal(t, "2025-03-10", r.URL.Query().Get("scheduled_to"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jobs": []any{
				jobDoc("job-1"),
				map[string]any{"fields": map[string]any{}}, // no id
				jobDoc("job-2"),
			},
		})
	}))

	jobs, err := client.ListJobsDue(context.Background(), core.JobWindow{
		From: time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-1", jobs[0].ID)
	assert.Equal(t, "job-2", jobs[1].ID)
}

func TestCompleteJobWritesAllFieldsAtOnce(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/jobs/job-1/fields", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))

	completedAt := time.Date(2025, 3, 10, 16, 45, 0, 0, time.UTC)
	require.NoError(t, client.CompleteJob(context.Background(), "job-1", "done and dusted", completedAt))

	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "done and dusted", fields["notes"])
	assert.Equal(t, "2025-03-10T16:45:00Z", fields["completed_at"])
	assert.Equal(t, "done", fields["status"])
}

func TestAttachFileRebuildsBodyPerCall(t *testing.T) {
	var bodies []map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))

	file := model.MediaPayload{Filename: "door.jpg", ContentType: "image/jpeg", Data: []byte("jpeg-bytes")}
	require.NoError(t, client.AttachFile(context.Background(), "job-1", file))
	require.NoError(t, client.AttachFile(context.Background(), "job-1", file))

	require.Len(t, bodies, 2)
	assert.Equal(t, bodies[0], bodies[1])
	assert.Equal(t, "door.jpg", bodies[0]["filename"])
	assert.NotEmpty(t, bodies[0]["data"])
}

func TestAttachFileRejectsEmptyPayload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	}))

	err := client.AttachFile(context.Background(), "job-1", model.MediaPayload{Filename: "x.jpg"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetMutePreferenceParsesDate(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/crew/crew-1/preferences", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"preferences": map[string]any{
				"muted_until":   "2025-03-12",
				"muted_job_ids": "job-1,job-2",
			},
		})
	}))

	pref, err := client.GetMutePreference(context.Background(), "crew-1")
	require.NoError(t, err)

	require.NotNil(t, pref.MutedUntil)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), *pref.MutedUntil)
	assert.True(t, pref.JobMuted("job-2"))
}

func TestGetMutePreferenceAbsentFields(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"preferences": map[string]any{}})
	}))

	pref, err := client.GetMutePreference(context.Background(), "crew-1")
	require.NoError(t, err)
	assert.Nil(t, pref.MutedUntil)
	assert.False(t, pref.JobMuted("job-1"))
}

func TestGetVenueName(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"venue": map[string]any{"name": "Grand Hall"}})
	}))

	name, err := client.GetVenueName(context.Background(), "venue-9")
	require.NoError(t, err)
	assert.Equal(t, "Grand Hall", name)
}

func TestGetJobLineItems(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []any{
				map[string]any{"name": "PA system", "quantity": float64(2)},
				map[string]any{"name": "Truss", "quantity": float64(8)},
			},
		})
	}))

	items, err := client.GetJobLineItems(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.LineItem{Name: "PA system", Quantity: 2}, items[0])
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Options{Config: config.RecordStoreConfig{}})
	require.Error(t, err)
}
