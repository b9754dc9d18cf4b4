package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[ServiceMode]bool
		wantErr bool
	}{
		{
			name:  "defaults",
			input: "escalation,completion-worker",
			want:  map[ServiceMode]bool{ServiceModeEscalation: true, ServiceModeCompletionWorker: true},
		},
		{
			name:  "all services with whitespace",
			input: " escalation , completion-worker ,dispatch-http",
			want: map[ServiceMode]bool{
				ServiceModeEscalation:       true,
				ServiceModeCompletionWorker: true,
				ServiceModeDispatchHTTP:     true,
			},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown service", input: "escalation,mystery", wantErr: true},
		{name: "only commas", input: ",,", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEscalationConfigSanitize(t *testing.T) {
	cfg := EscalationConfig{
		Interval:           time.Second,
		BusinessHoursStart: -3,
		BusinessHoursEnd:   30,
		ClaimTTL:           0,
	}
	cfg.Sanitize()

	assert.Equal(t, time.Minute, cfg.Interval)
	assert.Equal(t, 7, cfg.BusinessHoursStart)
	assert.Equal(t, 22, cfg.BusinessHoursEnd)
	assert.Equal(t, []time.Duration{2 * time.Hour, 6 * time.Hour, 14 * time.Hour}, cfg.LevelThresholds)
	assert.Equal(t, 25*time.Minute, cfg.ClaimTTL)
	assert.GreaterOrEqual(t, cfg.RecipientReminderLimit, 1)
}

func TestEscalationConfigSanitizeInvertedWindow(t *testing.T) {
	cfg := EscalationConfig{BusinessHoursStart: 20, BusinessHoursEnd: 8}
	cfg.Sanitize()
	assert.Greater(t, cfg.BusinessHoursEnd, cfg.BusinessHoursStart)
}

func TestRecordStoreConfigSanitize(t *testing.T) {
	cfg := RecordStoreConfig{
		BaseURL:     "  https://records.example.com/ ",
		Token:       " tok ",
		MaxAttempts: 0,
		BaseDelay:   -time.Second,
	}
	cfg.Sanitize()

	assert.Equal(t, "https://records.example.com", cfg.BaseURL)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.BaseDelay)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
}

func TestRecordStoreUseOAuth(t *testing.T) {
	cfg := RecordStoreConfig{OAuthTokenURL: "https://idp/token", OAuthClientID: "id"}
	assert.True(t, cfg.UseOAuth())

	cfg = RecordStoreConfig{Token: "static"}
	assert.False(t, cfg.UseOAuth())
}

func TestMailerConfigDisabledWithoutBaseURL(t *testing.T) {
	cfg := MailerConfig{Enabled: true}
	cfg.Sanitize()
	assert.False(t, cfg.Enabled)
}

func TestRedisConfigDisabledWithoutAddr(t *testing.T) {
	cfg := RedisConfig{Enabled: true, Addr: "  "}
	cfg.Sanitize()
	assert.False(t, cfg.Enabled)
}

func TestObservabilityMetricsDisabledWithoutAddress(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: ""}
	cfg.Sanitize()
	assert.False(t, cfg.IsEnabled())
}

func TestAppConfigServiceToggles(t *testing.T) {
	cfg := AppConfig{Services: "escalation,dispatch-http"}

	assert.True(t, cfg.IsEscalationEnabled())
	assert.False(t, cfg.IsCompletionWorkerEnabled())
	assert.True(t, cfg.IsDispatchHTTPEnabled())

	cfg.Services = "bogus"
	assert.False(t, cfg.IsEscalationEnabled())
}
