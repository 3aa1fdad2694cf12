package errors

import (
	"errors"
	"fmt"

	apperrors "github.com/wekeepgrowing/portal-billing/pkg/errors"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrFeatureDisabled      = errors.New("payments feature disabled")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrIdempotencyConflict  = errors.New("idempotency key already used for a different payment")
	ErrStreamUnavailable    = errors.New("notification stream unavailable")
)

// ConfigurationError is returned by every payment operation while the gateway
// is not configured.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s not configured: %s", e.Component, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrFeatureDisabled
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(component, reason string) *ConfigurationError {
	return &ConfigurationError{Component: component, Reason: reason}
}

// ValidationError rejects caller input. It is never logged as a fault.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// GatewayError wraps a failed call to the payment processor. The caller may
// retry; nothing was persisted locally.
type GatewayError struct {
	Provider string
	Op       string
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError creates a new GatewayError
func NewGatewayError(provider, op string, err error) *GatewayError {
	return &GatewayError{Provider: provider, Op: op, Err: err}
}

// ReconciliationError describes a webhook that could not be applied. It is
// logged and recorded on the event, never returned to the gateway.
type ReconciliationError struct {
	EventID  string
	IntentID string
	Reason   string
	Err      error
}

func (e *ReconciliationError) Error() string {
	msg := fmt.Sprintf("reconcile event %s (intent %s): %s", e.EventID, e.IntentID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// TransitionError reports a status change the state machine does not allow.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ToAppError maps domain errors onto transport neutral application errors.
func ToAppError(err error) error {
	if err == nil {
		return nil
	}

	var (
		cfgErr        *ConfigurationError
		validationErr *ValidationError
		gatewayErr    *GatewayError
		transitionErr *TransitionError
	)

	switch {
	case errors.As(err, &cfgErr):
		return apperrors.NewAppError(apperrors.ErrUnavailable, "payments unavailable", err)
	case errors.As(err, &validationErr):
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, validationErr.Error(), err)
	case errors.As(err, &gatewayErr):
		return apperrors.NewAppError(apperrors.ErrBadGateway, "payment provider unavailable, please retry", err)
	case errors.As(err, &transitionErr):
		return apperrors.NewAppError(apperrors.ErrConflict, transitionErr.Error(), err)
	case errors.Is(err, ErrInvalidSignature):
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "webhook signature verification failed", err)
	case errors.Is(err, ErrIdempotencyConflict):
		return apperrors.NewAppError(apperrors.ErrConflict, err.Error(), err)
	case errors.Is(err, ErrStreamUnavailable):
		return apperrors.NewAppError(apperrors.ErrUnavailable, err.Error(), err)
	case errors.Is(err, ErrPaymentNotFound), errors.Is(err, ErrInvoiceNotFound), errors.Is(err, ErrNotificationNotFound):
		return apperrors.NewAppError(apperrors.ErrNotFound, err.Error(), err)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.NewAppError(apperrors.ErrInternal, "internal error", err)
}
