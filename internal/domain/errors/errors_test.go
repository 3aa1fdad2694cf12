package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/wekeepgrowing/portal-billing/pkg/errors"
)

func TestToAppError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"configuration", NewConfigurationError("stripe", "secret key missing"), apperrors.ErrUnavailable},
		{"validation", NewValidationError("amount", "must be greater than zero"), apperrors.ErrInvalidArgument},
		{"gateway", NewGatewayError("stripe", "create intent", fmt.Errorf("timeout")), apperrors.ErrBadGateway},
		{"transition", &TransitionError{Entity: "invoice", From: "paid", To: "draft"}, apperrors.ErrConflict},
		{"not found wrapped", fmt.Errorf("get payment 7: %w", ErrPaymentNotFound), apperrors.ErrNotFound},
		{"signature", fmt.Errorf("verify: %w", ErrInvalidSignature), apperrors.ErrInvalidArgument},
		{"idempotency conflict", ErrIdempotencyConflict, apperrors.ErrConflict},
		{"stream unavailable", ErrStreamUnavailable, apperrors.ErrUnavailable},
		{"unknown", fmt.Errorf("db down"), apperrors.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, apperrors.CodeOf(ToAppError(tt.err)))
		})
	}
}

func TestConfigurationErrorIsFeatureDisabled(t *testing.T) {
	err := fmt.Errorf("create payment: %w", NewConfigurationError("stripe", "missing"))

	assert.ErrorIs(t, err, ErrFeatureDisabled)
}
