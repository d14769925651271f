// Package tracing wraps OpenTelemetry so allocation cycles, releases and
// submissions can be traced without the callers importing the SDK.
package tracing
