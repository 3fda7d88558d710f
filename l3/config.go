// Package l3 is the session/policy layer (spec §4.3): it drives L2 through
// the idle/busy priority list, owns the retry/backoff timers and deferred
// CIS queue, and runs post-command cleanup after every terminal L2
// outcome. Grounded on the teacher's fluent config-builder idiom
// (i4energy-sms-gateway's modem.NewConfigBuilder()...Build()) for its
// configurable parameters, and on services/hal's tick-driven,
// single-outstanding-operation shape for Session itself.
package l3

import (
	"time"

	"github.com/andreyvit/tinyjson"
)

// Config bundles every runtime-settable parameter spec §4.3 names, each
// with its documented default.
type Config struct {
	SignalPollInterval time.Duration // default 150s
	SignalRetryCount   int           // default 3
	SignalRetryDelay   time.Duration // default 25s

	FileSendRetryCount int           // default 5
	FileSendRetryDelay time.Duration // default 3s

	WaitForCallsWindow time.Duration // default 45s
	CommTimeout        time.Duration // default 10 minutes

	GatewayPollInterval time.Duration // fixed at 10s
	SatelliteTimeout    time.Duration // forwarded to L2, default 65s

	// KeepList lists the first-characters of outbox file names that are
	// moved to the sent subdirectory instead of deleted on successful
	// send; "*" keeps every file (spec §4.3 "post-command cleanup").
	KeepList string
}

// DefaultConfig returns every parameter at its spec-documented default.
func DefaultConfig() Config {
	return Config{
		SignalPollInterval:  150 * time.Second,
		SignalRetryCount:    3,
		SignalRetryDelay:    25 * time.Second,
		FileSendRetryCount:  5,
		FileSendRetryDelay:  3 * time.Second,
		WaitForCallsWindow:  45 * time.Second,
		CommTimeout:         10 * time.Minute,
		GatewayPollInterval: 10 * time.Second,
		SatelliteTimeout:    65 * time.Second,
		KeepList:            "",
	}
}

// ConfigBuilder builds a Config fluently on top of DefaultConfig, mirroring
// the teacher's modem.NewConfigBuilder()...Build() shape.
type ConfigBuilder struct {
	cfg Config
}

// NewConfigBuilder starts from DefaultConfig.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{cfg: DefaultConfig()}
}

func (b *ConfigBuilder) WithSignalPollInterval(d time.Duration) *ConfigBuilder {
	b.cfg.SignalPollInterval = d
	return b
}
func (b *ConfigBuilder) WithSignalRetry(count int, delay time.Duration) *ConfigBuilder {
	b.cfg.SignalRetryCount = count
	b.cfg.SignalRetryDelay = delay
	return b
}
func (b *ConfigBuilder) WithFileSendRetry(count int, delay time.Duration) *ConfigBuilder {
	b.cfg.FileSendRetryCount = count
	b.cfg.FileSendRetryDelay = delay
	return b
}
func (b *ConfigBuilder) WithWaitForCallsWindow(d time.Duration) *ConfigBuilder {
	b.cfg.WaitForCallsWindow = d
	return b
}
func (b *ConfigBuilder) WithCommTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.CommTimeout = d
	return b
}
func (b *ConfigBuilder) WithSatelliteTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.SatelliteTimeout = d
	return b
}
func (b *ConfigBuilder) WithKeepList(keepList string) *ConfigBuilder {
	b.cfg.KeepList = keepList
	return b
}

// Build returns the assembled Config.
func (b *ConfigBuilder) Build() Config { return b.cfg }

// LoadConfig decodes a boot-time config blob on top of DefaultConfig,
// overriding only the keys present, grounded on the teacher's
// services/config use of tinyjson.Raw(raw).Value() to avoid
// encoding/json's reflection and heap churn on the embedded target.
func LoadConfig(raw []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(raw) == 0 {
		return cfg, nil
	}
	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()
	m, ok := val.(map[string]any)
	if !ok {
		return cfg, nil
	}
	if v, ok := m["signal_poll_interval_s"].(float64); ok {
		cfg.SignalPollInterval = time.Duration(v) * time.Second
	}
	if v, ok := m["signal_retry_count"].(float64); ok {
		cfg.SignalRetryCount = int(v)
	}
	if v, ok := m["signal_retry_delay_s"].(float64); ok {
		cfg.SignalRetryDelay = time.Duration(v) * time.Second
	}
	if v, ok := m["file_send_retry_count"].(float64); ok {
		cfg.FileSendRetryCount = int(v)
	}
	if v, ok := m["file_send_retry_delay_s"].(float64); ok {
		cfg.FileSendRetryDelay = time.Duration(v) * time.Second
	}
	if v, ok := m["wait_for_calls_window_s"].(float64); ok {
		cfg.WaitForCallsWindow = time.Duration(v) * time.Second
	}
	if v, ok := m["comm_timeout_s"].(float64); ok {
		cfg.CommTimeout = time.Duration(v) * time.Second
	}
	if v, ok := m["satellite_timeout_s"].(float64); ok {
		cfg.SatelliteTimeout = time.Duration(v) * time.Second
	}
	if v, ok := m["keep_list"].(string); ok {
		cfg.KeepList = v
	}
	return cfg, nil
}
