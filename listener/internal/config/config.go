package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultBind              = "0.0.0.0:9932"
	DefaultReadTimeout       = 1 * time.Second
	DefaultBufferSize        = 2048
	DefaultRestartDelay      = 2 * time.Second
	DefaultAlertThreshold    = 60
	DefaultNewPassJump       = 120
	DefaultTolerance         = 15
	DefaultGapResync         = 5 * 60
	DefaultRequiredSamples   = 2
	DefaultPopupTimeout      = 10 * time.Second
	DefaultCommandTimeout    = 30 * time.Second
	DefaultHistorySize       = 200
	DefaultHTTPPort          = 8080
	DefaultGRPCPort          = 50051
	DefaultBroadcastInterval = 5 * time.Second
)

// Environment variables that override tracker settings after the file is read.
const (
	EnvAlertThreshold  = "ALERT_THRESHOLD_SECONDS"
	EnvNewPassJump     = "NEW_PASS_JUMP_SECONDS"
	EnvTolerance       = "TOLERANCE_SECONDS"
	EnvGapResync       = "GAP_RESYNC_SECONDS"
	EnvRequiredSamples = "REQUIRED_CONSISTENT_SAMPLES"
	EnvOncePerPass     = "ONCE_PER_PASS"
)

// Config is the top-level faoswatch configuration.
type Config struct {
	Listener ListenerConfig `yaml:"listener"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// ListenerConfig holds the UDP transport settings.
type ListenerConfig struct {
	// Bind is the host:port the UDP socket listens on.
	Bind string `yaml:"bind"`

	// ReadTimeout bounds each receive call so a stop request is observed promptly.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// BufferSize is the maximum datagram size read per packet.
	BufferSize int `yaml:"buffer_size"`

	// SocketBuffer sets the kernel receive buffer (SO_RCVBUF) in bytes.
	// Zero keeps the OS default.
	SocketBuffer int `yaml:"socket_buffer"`

	// AllowedSats restricts alerting to these names (exact match). Empty means all.
	AllowedSats []string `yaml:"allowed_sats"`

	// RestartOnError re-binds the socket after a transport failure.
	RestartOnError bool `yaml:"restart_on_error"`

	// RestartDelay is the pause between a failure and the restart.
	RestartDelay time.Duration `yaml:"restart_delay"`
}

// Allows reports whether name passes the allow-list.
func (l ListenerConfig) Allows(name string) bool {
	if len(l.AllowedSats) == 0 {
		return true
	}
	for _, s := range l.AllowedSats {
		if s == name {
			return true
		}
	}
	return false
}

// TrackerConfig holds the consistency and alert-gating parameters.
// All durations that are compared against TTG arithmetic are whole seconds.
type TrackerConfig struct {
	// AlertThresholdSeconds fires the alert once TTG is at or below this value.
	AlertThresholdSeconds int `yaml:"alert_threshold_seconds"`

	// NewPassJumpSeconds is the upward TTG jump that marks a new pass.
	NewPassJumpSeconds int `yaml:"new_pass_jump_seconds"`

	// ToleranceSeconds is the allowed disagreement between TTG decrement and
	// wall-clock elapsed for a sample to count as consistent.
	ToleranceSeconds int `yaml:"tolerance_seconds"`

	// GapResyncSeconds is the silence after which trust restarts from one.
	GapResyncSeconds int `yaml:"gap_resync_seconds"`

	// RequiredConsistentSamples is the confidence needed before alerting.
	RequiredConsistentSamples int `yaml:"required_consistent_samples"`

	// OncePerPass limits alerting to one alert per pass.
	OncePerPass bool `yaml:"once_per_pass"`

	// SessionTTL evicts sessions idle for longer than this. Zero keeps them
	// for the process lifetime.
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// AlertsConfig holds alert delivery targets.
type AlertsConfig struct {
	Voice    VoiceConfig     `yaml:"voice"`
	Popup    PopupConfig     `yaml:"popup"`
	Webhooks []WebhookConfig `yaml:"webhooks"`

	// CommandTimeout bounds each external voice/popup command.
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// HistorySize is the number of fired alerts kept for the API.
	HistorySize int `yaml:"history_size"`
}

// VoiceConfig configures spoken alerts.
type VoiceConfig struct {
	Enabled bool `yaml:"enabled"`

	// Command is the argv used to speak; "{text}" is substituted.
	Command []string `yaml:"command"`
}

// PopupConfig configures visual alerts.
type PopupConfig struct {
	Enabled bool `yaml:"enabled"`

	// Timeout is how long the popup stays up before closing on its own.
	Timeout time.Duration `yaml:"timeout"`

	// Command is the argv used to show a popup. "{title}", "{message}",
	// "{timeout_ms}" and "{timeout_s}" are substituted.
	Command []string `yaml:"command"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// ServerConfig holds the status surfaces served alongside the listener.
type ServerConfig struct {
	// HTTPPort serves the REST API, /metrics and /ws/stream. Zero disables.
	HTTPPort int `yaml:"http_port"`

	// GRPCPort serves the gRPC health service. Zero disables.
	GRPCPort int `yaml:"grpc_port"`

	// Auth guards the gRPC health service.
	Auth AuthConfig `yaml:"auth"`

	// BroadcastInterval is how often WebSocket clients receive a snapshot.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`
}

// AuthConfig controls client authentication on the gRPC surface.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the gRPC metadata key to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`
}

// SlogLevel maps Level to a slog.Level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the YAML config file at path. An empty path yields
// the defaults. Environment overrides are applied before validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Listener: ListenerConfig{
			Bind:           DefaultBind,
			ReadTimeout:    DefaultReadTimeout,
			BufferSize:     DefaultBufferSize,
			RestartOnError: true,
			RestartDelay:   DefaultRestartDelay,
		},
		Tracker: TrackerConfig{
			AlertThresholdSeconds:     DefaultAlertThreshold,
			NewPassJumpSeconds:        DefaultNewPassJump,
			ToleranceSeconds:          DefaultTolerance,
			GapResyncSeconds:          DefaultGapResync,
			RequiredConsistentSamples: DefaultRequiredSamples,
			OncePerPass:               true,
		},
		Alerts: AlertsConfig{
			Voice: VoiceConfig{
				Enabled: true,
				Command: []string{"espeak", "{text}"},
			},
			Popup: PopupConfig{
				Enabled: true,
				Timeout: DefaultPopupTimeout,
				Command: []string{"notify-send", "-t", "{timeout_ms}", "{title}", "{message}"},
			},
			CommandTimeout: DefaultCommandTimeout,
			HistorySize:    DefaultHistorySize,
		},
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			GRPCPort:          DefaultGRPCPort,
			BroadcastInterval: DefaultBroadcastInterval,
		},
		Log: LogConfig{Level: "info"},
	}
}

// applyEnv overrides tracker settings from the environment.
func applyEnv(cfg *Config) error {
	ints := []struct {
		env string
		dst *int
	}{
		{EnvAlertThreshold, &cfg.Tracker.AlertThresholdSeconds},
		{EnvNewPassJump, &cfg.Tracker.NewPassJumpSeconds},
		{EnvTolerance, &cfg.Tracker.ToleranceSeconds},
		{EnvGapResync, &cfg.Tracker.GapResyncSeconds},
		{EnvRequiredSamples, &cfg.Tracker.RequiredConsistentSamples},
	}
	for _, o := range ints {
		v, ok := os.LookupEnv(o.env)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("env %s: %w", o.env, err)
		}
		*o.dst = n
	}

	if v, ok := os.LookupEnv(EnvOncePerPass); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("env %s: %w", EnvOncePerPass, err)
		}
		cfg.Tracker.OncePerPass = b
	}
	return nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Listener.Bind == "" {
		return fmt.Errorf("listener.bind is required")
	}
	if cfg.Listener.ReadTimeout <= 0 {
		return fmt.Errorf("listener.read_timeout must be positive")
	}
	if cfg.Listener.BufferSize <= 0 {
		return fmt.Errorf("listener.buffer_size must be positive")
	}
	if cfg.Listener.SocketBuffer < 0 {
		return fmt.Errorf("listener.socket_buffer must not be negative")
	}
	if cfg.Listener.RestartDelay < 0 {
		return fmt.Errorf("listener.restart_delay must not be negative")
	}

	t := cfg.Tracker
	if t.RequiredConsistentSamples < 1 {
		return fmt.Errorf("tracker.required_consistent_samples must be at least 1")
	}
	if t.ToleranceSeconds < 0 {
		return fmt.Errorf("tracker.tolerance_seconds must not be negative")
	}
	if t.GapResyncSeconds <= 0 {
		return fmt.Errorf("tracker.gap_resync_seconds must be positive")
	}
	if t.NewPassJumpSeconds < 0 {
		return fmt.Errorf("tracker.new_pass_jump_seconds must not be negative")
	}
	if t.SessionTTL < 0 {
		return fmt.Errorf("tracker.session_ttl must not be negative")
	}

	if cfg.Alerts.Voice.Enabled && len(cfg.Alerts.Voice.Command) == 0 {
		return fmt.Errorf("alerts.voice.command is required when voice is enabled")
	}
	if cfg.Alerts.Popup.Enabled && len(cfg.Alerts.Popup.Command) == 0 {
		return fmt.Errorf("alerts.popup.command is required when popup is enabled")
	}
	if cfg.Alerts.Popup.Timeout < 0 {
		return fmt.Errorf("alerts.popup.timeout must not be negative")
	}
	if cfg.Alerts.HistorySize <= 0 {
		return fmt.Errorf("alerts.history_size must be positive")
	}
	for i, wh := range cfg.Alerts.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, wh.Type)
		}
	}

	if cfg.Server.HTTPPort < 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [0, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.GRPCPort < 0 || cfg.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [0, 65535]", cfg.Server.GRPCPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	return nil
}
