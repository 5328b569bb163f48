// internal/core/errors_test.go
package core

import (
	"errors"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_Is(t *testing.T) {
	if !errors.Is(ErrNoStrategies, ErrNoStrategies) {
		t.Error("same error should match")
	}
	if errors.Is(ErrNoStrategies, ErrInsufficientData) {
		t.Error("different codes should not match")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrProvider, cause)
	if wrapped.Cause != cause {
		t.Error("cause not set")
	}
	if wrapped.Code != ErrProvider.Code {
		t.Error("code not preserved")
	}
}

func TestErrorf_NestedCodesMatch(t *testing.T) {
	inner := Errorf(ErrInsufficientData, "need %d bars, got %d", 20, 5)
	outer := WrapError(ErrDataValidation, inner)

	if !errors.Is(outer, ErrDataValidation) {
		t.Error("outer code should match")
	}
	if !errors.Is(outer, ErrInsufficientData) {
		t.Error("inner code should be reachable through Unwrap")
	}
	if inner.Error() != "[INSUFFICIENT_DATA] insufficient data for analysis: need 20 bars, got 5" {
		t.Errorf("unexpected message: %s", inner.Error())
	}
}
