package dispatch

import (
	"bytes"
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

	"github.com/stagehand-app/stagehand/internal/domain/model"
	apperrors "github.com/stagehand-app/stagehand/internal/errors"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func samplePayload() *model.BackgroundCompletionPayload {
	return &model.BackgroundCompletionPayload{
		DispatchID: "dispatch-1",
		JobID:      "job-1",
		JobKind:    model.JobKindDelivery,
		ActorID:    "crew-1",
		Photos: []model.MediaPayload{
			{Filename: "door.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")},
		},
		Signature:        &model.MediaPayload{Filename: "sig.png", ContentType: "image/png", Data: []byte("png")},
		NotifyRecipients: []string{"client@example.com"},
		Recipient:        model.Recipient{ID: "crew-1", Name: "Sam", Email: "sam@example.com"},
		VenueID:          "venue-9",
		CompletedAt:      time.Date(2025, 3, 10, 16, 45, 0, 0, time.UTC),
	}
}

func TestQueueDispatchAndDrain(t *testing.T) {
	q := NewQueue(2, silentLogger())
	ctx := context.Background()

	require.NoError(t, q.Dispatch(ctx, samplePayload()))
	require.NoError(t, q.Dispatch(ctx, samplePayload()))

	// Queue is full; the caller is rejected, never blocked.
	err := q.Dispatch(ctx, samplePayload())
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))

	q.Close()

	var drained int
	for range q.Chan() {
		drained++
	}
	assert.Equal(t, 2, drained)
}

func TestQueueCloseIsIdempotent(t *testing.T) {
	q := NewQueue(1, silentLogger())
	q.Close()
	q.Close()
}

func TestQueueRejectsDispatchAfterClose(t *testing.T) {
	q := NewQueue(4, silentLogger())
	q.Close()

	// A dispatch racing shutdown is rejected like a full queue, not a crash.
	var err error
	assert.NotPanics(t, func() {
		err = q.Dispatch(context.Background(), samplePayload())
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestQueueRejectsNilPayload(t *testing.T) {
	q := NewQueue(1, silentLogger())
	err := q.Dispatch(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestWireRoundTrip(t *testing.T) {
	payload := samplePayload()

	data, err := json.Marshal(toWire(payload))
	require.NoError(t, err)

	var wire wirePayload
	require.NoError(t, json.Unmarshal(data, &wire))

	got := fromWire(wire)
	assert.Equal(t, payload, got)
}

func TestWireUnknownKindFallsBack(t *testing.T) {
	got := fromWire(wirePayload{JobID: "job-1", JobKind: "mystery"})
	assert.Equal(t, model.JobKindUnknown, got.JobKind)
}

func TestHandlerAcceptsAuthenticatedPayload(t *testing.T) {
	q := NewQueue(4, silentLogger())
	handler := Handler("secret", q, silentLogger())

	body, err := json.Marshal(toWire(samplePayload()))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/dispatch", bytes.NewReader(body))
	req.Header.Set(SecretHeader, "secret")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	q.Close()
	got := <-q.Chan()
	assert.Equal(t, "job-1", got.JobID)
}

func TestHandlerRejectsBadSecret(t *testing.T) {
	q := NewQueue(1, silentLogger())
	handler := Handler("secret", q, silentLogger())

	req := httptest.NewRequest(http.MethodPost, "/dispatch", bytes.NewReader([]byte("{}")))
	req.Header.Set(SecretHeader, "wrong")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerRejectsWhenNoSecretConfigured(t *testing.T) {
	q := NewQueue(1, silentLogger())
	handler := Handler("", q, silentLogger())

	req := httptest.NewRequest(http.MethodPost, "/dispatch", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerRejectsNonPost(t *testing.T) {
	q := NewQueue(1, silentLogger())
	handler := Handler("secret", q, silentLogger())

	req := httptest.NewRequest(http.MethodGet, "/dispatch", nil)
	req.Header.Set(SecretHeader, "secret")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandlerRejectsMissingJobID(t *testing.T) {
	q := NewQueue(1, silentLogger())
	handler := Handler("secret", q, silentLogger())

	req := httptest.NewRequest(http.MethodPost, "/dispatch", bytes.NewReader([]byte("{}")))
	req.Header.Set(SecretHeader, "secret")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerQueueFull(t *testing.T) {
	q := NewQueue(1, silentLogger())
	require.NoError(t, q.Dispatch(context.Background(), samplePayload()))
	handler := Handler("secret", q, silentLogger())

	body, err := json.Marshal(toWire(samplePayload()))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/dispatch", bytes.NewReader(body))
	req.Header.Set(SecretHeader, "secret")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHTTPClientPostsToHandler(t *testing.T) {
	q := NewQueue(4, silentLogger())
	srv := httptest.NewServer(Handler("secret", q, silentLogger()))
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(HTTPClientOptions{
		Endpoint: srv.URL,
		Secret:   "secret",
		Client:   srv.Client(),
	})
	require.NoError(t, err)

	payload := samplePayload()
	require.NoError(t, client.Dispatch(context.Background(), payload))

	q.Close()
	got := <-q.Chan()
	assert.Equal(t, payload, got)
}

func TestHTTPClientClassifiesResponses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode apperrors.ErrorCode
	}{
		{name: "server error retryable", status: http.StatusServiceUnavailable, wantCode: apperrors.ErrCodeUnavailable},
		{name: "rate limited retryable", status: http.StatusTooManyRequests, wantCode: apperrors.ErrCodeUnavailable},
		{name: "unauthorized terminal", status: http.StatusUnauthorized, wantCode: apperrors.ErrCodeExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(srv.Close)

			client, err := NewHTTPClient(HTTPClientOptions{
				Endpoint: srv.URL,
				Secret:   "secret",
				Client:   srv.Client(),
			})
			require.NoError(t, err)

			err = client.Dispatch(context.Background(), samplePayload())
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.GetCode(err))
		})
	}
}
