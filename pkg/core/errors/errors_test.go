package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/easyops/contextpipe-go/pkg/core/errors"
)

func TestWrapError(t *testing.T) {
	wrapped := errors.WrapError(errors.ErrRateLimited, "calling provider")
	if wrapped == nil {
		t.Fatal("expected non-nil wrapped error")
	}
	if !stderrors.Is(wrapped, errors.ErrRateLimited) {
		t.Fatal("expected wrapped error to match sentinel")
	}
	if wrapped.Error() != "calling provider: rate limited" {
		t.Fatalf("unexpected message: %s", wrapped.Error())
	}

	if errors.WrapError(nil, "context") != nil {
		t.Fatal("expected nil for nil input")
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []error{
		errors.ErrRateLimited,
		errors.ErrTimeout,
		errors.ErrProviderUnavailable,
		errors.WrapError(errors.ErrRateLimited, "wrapped"),
	}
	for _, err := range retryable {
		if !errors.IsRetryable(err) {
			t.Fatalf("expected %v to be retryable", err)
		}
	}

	notRetryable := []error{
		nil,
		errors.ErrInvalidAPIKey,
		errors.ErrInvalidConfig,
		stderrors.New("other"),
	}
	for _, err := range notRetryable {
		if errors.IsRetryable(err) {
			t.Fatalf("expected %v to not be retryable", err)
		}
	}
}

func TestIsFatal(t *testing.T) {
	fatal := []error{
		errors.ErrInvalidAPIKey,
		errors.ErrInvalidConfig,
		errors.ErrInvalidPipelineConfig,
	}
	for _, err := range fatal {
		if !errors.IsFatal(err) {
			t.Fatalf("expected %v to be fatal", err)
		}
	}

	if errors.IsFatal(errors.ErrRateLimited) {
		t.Fatal("expected rate limit to not be fatal")
	}
	if errors.IsFatal(nil) {
		t.Fatal("expected nil to not be fatal")
	}
}

func TestIsAdvisory(t *testing.T) {
	if !errors.IsAdvisory(errors.ErrEmptyPool) {
		t.Fatal("expected empty pool to be advisory")
	}
	if !errors.IsAdvisory(errors.WrapError(errors.ErrEmptyPool, "selecting")) {
		t.Fatal("expected wrapped empty pool to be advisory")
	}
	if errors.IsAdvisory(errors.ErrInvalidConfig) {
		t.Fatal("expected invalid config to not be advisory")
	}
	if errors.IsAdvisory(nil) {
		t.Fatal("expected nil to not be advisory")
	}
}
