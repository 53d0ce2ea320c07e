// Package errors provides foundational, type-safe error primitives used across hierbuild.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, validation, not_found, operation, ...)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - RetryStrategy: Retry hint for callers that re-run invocations (watch mode)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLIErrorAdapter: exit code mapping and presentation for the CLI
//
// Example usage:
//
//	err := errors.OperationError("post-action failed").
//		WithCause(cause).
//		WithContext("operation", ":impl:publish").
//		Build()
package errors
