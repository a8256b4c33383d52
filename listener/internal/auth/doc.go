// Package auth guards the listener's gRPC surface with an API key carried in
// request metadata. With mode "none", or with no key resolved from the
// environment, every call passes.
package auth
