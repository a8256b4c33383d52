// Package session holds the per-source tracking state and the store that owns it.
package session
