package model

import (
	"fmt"
	"time"

	apperrors "github.com/stagehand-app/stagehand/internal/errors"
)

// MediaPayload is a raw photo or signature capture submitted with a
// completion. Payloads are reconstructed per upload attempt, never streamed,
// so a retried upload always sends the full bytes again.
type MediaPayload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CompletionRequest is the ephemeral value object a crew member submits to
// mark a job done. It is consumed once and never persisted.
//
// Invariants: a signature is present if and only if the principal was
// present; at least one photo is required exactly when the principal was
// absent.
type CompletionRequest struct {
	JobID            string
	Notes            string
	Photos           []MediaPayload
	Signature        *MediaPayload
	PrincipalPresent bool
	NotifyRecipients []string
}

// Validate enforces the photo/signature invariant and the attachment cap
// before any external call is made.
func (r *CompletionRequest) Validate(maxPhotos int) error {
	if r.JobID == "" {
		return apperrors.ValidationField("jobId", "job id is required")
	}
	if len(r.Photos) > maxPhotos {
		return apperrors.ValidationField("photos", fmt.Sprintf("too many photos: at most %d allowed", maxPhotos))
	}
	if r.PrincipalPresent {
		if r.Signature == nil || len(r.Signature.Data) == 0 {
			return apperrors.ValidationField("signature", "signature is required when the principal is present")
		}
	} else {
		if r.Signature != nil {
			return apperrors.ValidationField("signature", "signature is only accepted when the principal is present")
		}
		if len(r.Photos) == 0 {
			return apperrors.ValidationField("photos", "at least one photo is required when the principal is absent")
		}
	}
	for _, p := range r.Photos {
		if len(p.Data) == 0 {
			return apperrors.ValidationField("photos", "photo payload is empty")
		}
	}
	return nil
}

// CompletionOutcome is returned to the caller after Phase 1. Success with a
// non-empty Warnings slice means the completion committed but one or more
// non-essential side effects degraded.
type CompletionOutcome struct {
	Success  bool
	Warnings []string
}

// BackgroundCompletionPayload carries the full completion context to the
// background side-effect worker. It is a superset of the request, including
// raw media and derived display data, and is discarded after processing.
type BackgroundCompletionPayload struct {
	DispatchID       string
	JobID            string
	JobKind          JobKind
	ActorID          string
	Notes            string
	Photos           []MediaPayload
	Signature        *MediaPayload
	NotifyRecipients []string
	Recipient        Recipient
	VenueID          string
	CompletedAt      time.Time
}

// CompletionDocument is the structured completion report generated for
// delivery jobs. Byte-level layout is the renderer's concern.
type CompletionDocument struct {
	JobID       string
	VenueName   string
	Recipient   Recipient
	CompletedAt time.Time
	Notes       string
	LineItems   []LineItem
	Signature   *MediaPayload

	// LogoURL points at the branding asset rendered in the report header.
	// Empty skips the logo.
	LogoURL string
}
