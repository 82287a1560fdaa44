package repository

import "context"

// Well-known system setting keys.
const (
	SettingRetryMaxRetries   = "PAYMENT_RETRY_MAX_RETRIES"
	SettingRetryDelayMinutes = "PAYMENT_RETRY_DELAY_MINUTES"
)

// SettingsRepository reads key/value system settings. The billing core never
// writes settings; an external admin surface owns them. Values are read at
// call time, not cached, so a live change applies to the next scheduled retry.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	// GetInt returns the setting parsed as int, or def when the key is
	// missing or malformed.
	GetInt(ctx context.Context, key string, def int) (int, error)
}
