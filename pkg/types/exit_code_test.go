// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"os/exec"
	"testing"
)

func TestExitCodeValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		value     ExitCode
		wantValid bool
	}{
		{name: "zero is valid", value: 0, wantValid: true},
		{name: "one is valid", value: 1, wantValid: true},
		{name: "255 is valid", value: 255, wantValid: true},
		{name: "negative is invalid", value: -1, wantValid: false},
		{name: "256 is invalid", value: 256, wantValid: false},
		{name: "large positive is invalid", value: 1000, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.value.Validate()
			if (err == nil) != tt.wantValid {
				t.Errorf("ExitCode(%d).Validate() error = %v, wantValid %v", tt.value, err, tt.wantValid)
			}
			if !tt.wantValid && !errors.Is(err, ErrInvalidExitCode) {
				t.Errorf("error does not wrap ErrInvalidExitCode: %v", err)
			}
		})
	}
}

func TestExitCodeIsSuccess(t *testing.T) {
	t.Parallel()

	if !ExitCode(0).IsSuccess() {
		t.Error("ExitCode(0).IsSuccess() = false, want true")
	}
	if ExitCode(1).IsSuccess() {
		t.Error("ExitCode(1).IsSuccess() = true, want false")
	}
}

func TestFromWaitError(t *testing.T) {
	t.Parallel()

	if got := FromWaitError(nil); got != 0 {
		t.Errorf("FromWaitError(nil) = %d, want 0", got)
	}

	// A real nonzero exit so the error carries an *exec.ExitError.
	err := exec.Command("sh", "-c", "exit 3").Run()
	if err == nil {
		t.Fatal("expected command to fail")
	}
	if got := FromWaitError(err); got != 3 {
		t.Errorf("FromWaitError(exit 3) = %d, want 3", got)
	}

	// Startup failures carry no exit status and map to 1.
	startErr := exec.Command("/nonexistent-tsmirror-binary").Run()
	if got := FromWaitError(startErr); got != 1 {
		t.Errorf("FromWaitError(start failure) = %d, want 1", got)
	}
}
