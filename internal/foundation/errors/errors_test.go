package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid manifest").
			WithSeverity(SeverityFatal).
			WithContext("file", "hierbuild.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid manifest" {
			t.Errorf("expected message 'invalid manifest', got %s", err.Message())
		}

		file, exists := err.Context().GetString("file")
		if !exists || file != "hierbuild.yaml" {
			t.Errorf("expected context file=hierbuild.yaml, got %v", file)
		}
	})

	t.Run("Error detection", func(t *testing.T) {
		err := ConfigError("test error").Build()

		if !IsClassified(err) {
			t.Error("expected error to be classified")
		}
		if !HasCategory(err, CategoryConfig) {
			t.Error("expected error to have config category")
		}
		if err.CanRetry() {
			t.Error("expected config error to not be retryable")
		}
		if !err.IsFatal() {
			t.Error("expected config error to be fatal")
		}
	})

	t.Run("Detection through fmt wrapping", func(t *testing.T) {
		inner := NotFoundError("task not found").Build()
		wrapped := fmt.Errorf("run :build: %w", inner)

		if !HasCategory(wrapped, CategoryNotFound) {
			t.Error("expected wrapped error to keep not_found category")
		}
		if GetCategory(errors.New("plain")) != CategoryInternal {
			t.Error("expected unclassified error to map to internal")
		}
	})

	t.Run("WithContext copies", func(t *testing.T) {
		base := OperationError("failed").Build()
		derived := base.WithContext("operation", ":build")

		if _, ok := base.Context().Get("operation"); ok {
			t.Error("expected base context to stay untouched")
		}
		if v, _ := derived.Context().GetString("operation"); v != ":build" {
			t.Errorf("expected derived context operation=:build, got %q", v)
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Fluent API", func(t *testing.T) {
		originalErr := errors.New("disk full")
		err := WrapError(originalErr, CategoryFileSystem, "copy failed").
			Warning().
			WithContext("path", "/tmp/x").
			Build()

		if err.Severity() != SeverityWarning {
			t.Errorf("expected severity %s, got %s", SeverityWarning, err.Severity())
		}
		if !errors.Is(err, originalErr) {
			t.Error("expected error to wrap original error")
		}
		if got := err.Error(); got != "[filesystem:warning] copy failed: disk full" {
			t.Errorf("unexpected message %q", got)
		}
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			severity ErrorSeverity
			retry    RetryStrategy
		}{
			{"ConfigError", ConfigError("test"), CategoryConfig, SeverityFatal, RetryUserAction},
			{"ValidationError", ValidationError("test"), CategoryValidation, SeverityFatal, RetryUserAction},
			{"NotFoundError", NotFoundError("test"), CategoryNotFound, SeverityError, RetryUserAction},
			{"OperationError", OperationError("test"), CategoryOperation, SeverityError, RetryNever},
			{"FileSystemError", FileSystemError("test"), CategoryFileSystem, SeverityError, RetryNever},
			{"PublishError", PublishError("test"), CategoryPublish, SeverityError, RetryNever},
			{"HistoryError", HistoryError("test"), CategoryHistory, SeverityWarning, RetryNever},
			{"CanceledError", CanceledError("test"), CategoryCanceled, SeverityError, RetryImmediate},
			{"RuntimeError", RuntimeError("test"), CategoryRuntime, SeverityFatal, RetryNever},
			{"InternalError", InternalError("test"), CategoryInternal, SeverityFatal, RetryNever},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				if err.Category() != tt.category {
					t.Errorf("expected category %s, got %s", tt.category, err.Category())
				}
				if err.Severity() != tt.severity {
					t.Errorf("expected severity %s, got %s", tt.severity, err.Severity())
				}
				if err.RetryStrategy() != tt.retry {
					t.Errorf("expected retry strategy %s, got %s", tt.retry, err.RetryStrategy())
				}
			})
		}
	})
}

func TestErrorContext(t *testing.T) {
	ctx1 := make(ErrorContext)
	ctx1 = ctx1.Set("key1", "value1")
	ctx1 = ctx1.Set("shared", "original")

	ctx2 := make(ErrorContext)
	ctx2 = ctx2.Set("shared", "overridden")

	merged := ctx1.Merge(ctx2)

	value1, _ := merged.GetString("key1")
	shared, _ := merged.GetString("shared")
	if value1 != "value1" {
		t.Errorf("expected key1=value1, got %s", value1)
	}
	if shared != "overridden" {
		t.Errorf("expected shared=overridden, got %s", shared)
	}
}
