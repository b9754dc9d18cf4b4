// Package model defines the domain types shared across the job lifecycle
// services. Remote values arrive as loosely-typed labels and are mapped onto
// closed enum types at this boundary.
package model

import (
	"strings"
	"time"
)

// JobStatus is the lifecycle status of a job as tracked on the external
// record store. Unrecognised remote labels map to JobStatusUnknown.
type JobStatus string

const (
	// JobStatusPending is a job awaiting crew confirmation.
	JobStatusPending JobStatus = "pending-confirmation"
	// JobStatusConfirmed is a confirmed, not yet completed job. Escalation
	// only ever applies to jobs in this status.
	JobStatusConfirmed JobStatus = "confirmed"
	// JobStatusDone is a completed job.
	JobStatusDone JobStatus = "done"
	// JobStatusCancelled is a cancelled job.
	JobStatusCancelled JobStatus = "cancelled"
	// JobStatusUnknown covers remote labels this service does not recognise.
	// Unknown jobs are excluded from escalation and completion.
	JobStatusUnknown JobStatus = "unknown"
)

// ParseJobStatus maps a remote status label to a JobStatus. Matching is
// case-insensitive and tolerates surrounding whitespace; anything else
// becomes JobStatusUnknown rather than an error.
func ParseJobStatus(label string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "pending-confirmation", "pending confirmation", "pending":
		return JobStatusPending
	case "confirmed":
		return JobStatusConfirmed
	case "done", "completed", "complete":
		return JobStatusDone
	case "cancelled", "canceled":
		return JobStatusCancelled
	default:
		return JobStatusUnknown
	}
}

// JobKind distinguishes the two job types the portal handles. Delivery jobs
// produce a completion document; warehouse jobs defer their external status
// flip to the background phase.
type JobKind string

const (
	// JobKindDelivery is an on-site delivery/install job.
	JobKindDelivery JobKind = "delivery"
	// JobKindWarehouse is a warehouse preparation job.
	JobKindWarehouse JobKind = "warehouse"
	// JobKindUnknown covers unrecognised remote kind labels.
	JobKindUnknown JobKind = "unknown"
)

// ParseJobKind maps a remote kind label to a JobKind.
func ParseJobKind(label string) JobKind {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "delivery", "install", "on-site":
		return JobKindDelivery
	case "warehouse", "prep":
		return JobKindWarehouse
	default:
		return JobKindUnknown
	}
}

// Recipient identifies the crew member assigned to a job.
type Recipient struct {
	ID    string
	Name  string
	Email string
}

// Assigned reports whether the recipient identifies an actual crew member.
func (r Recipient) Assigned() bool {
	return r.ID != "" && r.Email != ""
}

// Job is the subset of an external job record this subsystem reads and
// mutates. Identity is the opaque external ID.
//
// EscalationLevel is only read or advanced while Status == confirmed and
// CompletedAt == nil; once CompletedAt is set escalation stops permanently.
type Job struct {
	ID              string
	Kind            JobKind
	Status          JobStatus
	ScheduledAt     time.Time
	Assignee        Recipient
	EscalationLevel int
	CompletedAt     *time.Time
	VenueID         string
	Notes           string
}

// Completed reports whether the job carries a completion timestamp or a
// terminal done status.
func (j *Job) Completed() bool {
	return j.CompletedAt != nil || j.Status == JobStatusDone
}

// Terminal reports whether the job has permanently exited the escalation
// lifecycle.
func (j *Job) Terminal() bool {
	return j.Completed() || j.Status == JobStatusCancelled
}

// LineItem is one equipment line on a job, embedded into completion
// documents.
type LineItem struct {
	Name     string
	Quantity int
}
