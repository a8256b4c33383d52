// Package config loads and watches the faoswatch configuration file.
//
// Top-level sections:
//   - listener: UDP bind address, read timeout, receive buffer, satellite
//     allow-list, restart-on-error supervision
//   - tracker: alert threshold, new-pass jump, consistency tolerance, gap
//     resync, required consistent samples, once-per-pass, session TTL
//   - alerts: voice and popup commands, webhook targets, history size
//   - server: HTTP port (API, WebSocket, /metrics), gRPC health port, auth
//   - log: slog level
//
// Load(path) applies defaults, unmarshals the YAML file (an empty path means
// defaults only), applies the tracker environment overrides
// (ALERT_THRESHOLD_SECONDS, NEW_PASS_JUMP_SECONDS, TOLERANCE_SECONDS,
// GAP_RESYNC_SECONDS, REQUIRED_CONSISTENT_SAMPLES, ONCE_PER_PASS) and
// validates.
//
// Watch(ctx, path, onChange) uses fsnotify to reload the file on write and
// calls onChange with the new Config. A failed reload is logged and the
// previous config stays active.
package config
