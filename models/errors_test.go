package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestRenderError_IsMatchesByCode(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("render: %w", NewRenderError(ErrCodeBackendUnavailable, "cannot reach backend", cause))

	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected errors.Is to match ErrBackendUnavailable, got %v", err)
	}
	if errors.Is(err, ErrRenderTimeout) {
		t.Errorf("errors.Is matched an unrelated code: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("wrapped cause not reachable through Unwrap")
	}
}

func TestRenderError_As(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewRenderError(ErrCodeTimeout, "page source retrieval timed out", nil))

	var re *RenderError
	if !errors.As(err, &re) {
		t.Fatal("errors.As did not find RenderError")
	}
	if re.Code != ErrCodeTimeout {
		t.Errorf("code = %q, want %q", re.Code, ErrCodeTimeout)
	}
}

func TestRenderError_Message(t *testing.T) {
	tests := []struct {
		err  *RenderError
		want string
	}{
		{NewRenderError(ErrCodeInvalidURL, "no host", nil), "INVALID_URL: no host"},
		{NewRenderError(ErrCodeNavigation, "navigate", errors.New("boom")), "NAVIGATION_FAILED: navigate: boom"},
		{ErrRenderTimeout, "RENDER_TIMEOUT"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestRenderError_ToDetail(t *testing.T) {
	d := NewRenderError(ErrCodeScriptExecution, "inject failed", errors.New("js")).ToDetail()
	if d.Code != ErrCodeScriptExecution || d.Message != "inject failed" {
		t.Errorf("unexpected detail: %+v", d)
	}
}
