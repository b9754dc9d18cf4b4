package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeEscalation runs the periodic escalation scheduler.
	ServiceModeEscalation ServiceMode = "escalation"
	// ServiceModeCompletionWorker runs the background side-effect worker.
	ServiceModeCompletionWorker ServiceMode = "completion-worker"
	// ServiceModeDispatchHTTP runs the internal dispatch HTTP listener.
	ServiceModeDispatchHTTP ServiceMode = "dispatch-http"
)

// ParseServices parses a comma-delimited string of service names and returns
// the enabled services, validating every name.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}

		mode := ServiceMode(name)
		switch mode {
		case ServiceModeEscalation, ServiceModeCompletionWorker, ServiceModeDispatchHTTP:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: escalation, completion-worker, dispatch-http)",
				name,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// EscalationConfig contains escalation scheduler configuration.
type EscalationConfig struct {
	// Interval is the scheduler tick interval.
	Interval time.Duration `env:"ESCALATION_INTERVAL" envDefault:"30m"`

	// LevelThresholds maps escalation level N to the minimum elapsed time
	// since the job's scheduled start (index 0 = level 1).
	LevelThresholds []time.Duration `env:"ESCALATION_LEVEL_THRESHOLDS" envSeparator:"," envDefault:"2h,6h,14h"`

	// BusinessHoursStart is the first local hour (inclusive) in which the
	// scheduler may run at all.
	BusinessHoursStart int `env:"ESCALATION_BUSINESS_HOURS_START" envDefault:"7"`

	// BusinessHoursEnd is the local hour (exclusive) after which the
	// scheduler is a no-op.
	BusinessHoursEnd int `env:"ESCALATION_BUSINESS_HOURS_END" envDefault:"22"`

	// StaffEmail is the fixed operational address for the terminal staff
	// escalation at the maximum level.
	StaffEmail string `env:"ESCALATION_STAFF_EMAIL" envDefault:"ops@stagehand.app"`

	// RecipientReminderLimit caps reminder emails per recipient per window.
	RecipientReminderLimit int `env:"ESCALATION_RECIPIENT_REMINDER_LIMIT" envDefault:"10"`

	// RecipientReminderWindow is the rate-limit window for reminders.
	RecipientReminderWindow time.Duration `env:"ESCALATION_RECIPIENT_REMINDER_WINDOW" envDefault:"24h"`

	// ClaimTTL bounds the single-flight claim taken per job and level so an
	// aborted run cannot block escalation forever.
	ClaimTTL time.Duration `env:"ESCALATION_CLAIM_TTL" envDefault:"25m"`
}

// Sanitize applies guardrails to escalation configuration values.
func (e *EscalationConfig) Sanitize() {
	if e.Interval < time.Minute {
		e.Interval = time.Minute
	}
	if len(e.LevelThresholds) == 0 {
		e.LevelThresholds = []time.Duration{2 * time.Hour, 6 * time.Hour, 14 * time.Hour}
	}
	if e.BusinessHoursStart < 0 || e.BusinessHoursStart > 23 {
		e.BusinessHoursStart = 7
	}
	if e.BusinessHoursEnd <= e.BusinessHoursStart || e.BusinessHoursEnd > 24 {
		e.BusinessHoursEnd = 22
	}
	if e.RecipientReminderLimit < 1 {
		e.RecipientReminderLimit = 1
	}
	if e.RecipientReminderWindow < time.Minute {
		e.RecipientReminderWindow = 24 * time.Hour
	}
	if e.ClaimTTL < time.Minute {
		e.ClaimTTL = 25 * time.Minute
	}
}

// CompletionConfig contains completion pipeline configuration.
type CompletionConfig struct {
	// MaxPhotos is the maximum number of photo attachments per completion.
	MaxPhotos int `env:"COMPLETION_MAX_PHOTOS" envDefault:"5"`

	// ReportLogoURL is the branding image embedded in the completion report
	// header. Empty renders the report without a logo.
	ReportLogoURL string `env:"COMPLETION_REPORT_LOGO_URL" envDefault:"https://cdn.stagehand.app/assets/logo.png"`
}

// Sanitize applies guardrails to completion configuration values.
func (c *CompletionConfig) Sanitize() {
	if c.MaxPhotos < 1 {
		c.MaxPhotos = 1
	}
}

// WorkerConfig contains background side-effect worker configuration.
type WorkerConfig struct {
	// Concurrency is the number of worker goroutines.
	Concurrency int `env:"WORKER_CONCURRENCY" envDefault:"2"`

	// QueueSize bounds the in-process dispatch queue. A full queue rejects
	// dispatch rather than blocking the caller.
	QueueSize int `env:"WORKER_QUEUE_SIZE" envDefault:"64"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	if w.QueueSize < 1 {
		w.QueueSize = 1
	}
}

// DispatchConfig contains internal dispatch transport configuration.
type DispatchConfig struct {
	// ListenAddr is the bind address for the dispatch HTTP listener.
	ListenAddr string `env:"DISPATCH_LISTEN_ADDR" envDefault:":8097"`

	// Endpoint is the URL the completion pipeline posts payloads to when
	// the worker runs out of process. Empty means in-process dispatch.
	Endpoint string `env:"DISPATCH_ENDPOINT"`

	// SharedSecret authenticates service-to-service dispatch calls. It is
	// distinct from any end-user session auth.
	SharedSecret string `env:"DISPATCH_SHARED_SECRET"`

	// Timeout bounds the dispatch HTTP call.
	Timeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to dispatch configuration values.
func (d *DispatchConfig) Sanitize() {
	d.Endpoint = strings.TrimSpace(d.Endpoint)
	d.SharedSecret = strings.TrimSpace(d.SharedSecret)
	if d.Timeout <= 0 {
		d.Timeout = 10 * time.Second
	}
	if strings.TrimSpace(d.ListenAddr) == "" {
		d.ListenAddr = ":8097"
	}
}
