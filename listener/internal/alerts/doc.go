// Package alerts delivers fired pass alerts: spoken text, an auto-closing
// popup, and webhooks to Slack, Teams or generic HTTP targets. Voice and
// popup run external commands so the listener itself does no audio or GUI
// work. Every delivery failure is reported as a DispatchError; none of them
// undo the alert.
package alerts
