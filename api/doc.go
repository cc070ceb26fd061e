// Package api is the single HTTP boundary between the client and the
// platform backend. Every request flows through the [Gateway], which injects
// the current bearer token, tags requests for tracing, normalizes error
// bodies into [*Error], and enforces the global expired-session policy: any
// 401 response tears the session down exactly once via the configured hook.
//
// The gateway never retries and never refreshes tokens on its own; a failed
// request is reported to the caller as-is.
package api
