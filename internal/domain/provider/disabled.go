package provider

import (
	"context"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
)

// Disabled stands in for the gateway when credentials are missing. Every
// call fails with a ConfigurationError.
type Disabled struct {
	Reason string
}

// NewDisabled creates a disabled gateway
func NewDisabled(reason string) *Disabled {
	return &Disabled{Reason: reason}
}

func (d *Disabled) err() error {
	return domainErrors.NewConfigurationError("payment gateway", d.Reason)
}

func (d *Disabled) Name() string  { return "disabled" }
func (d *Disabled) Enabled() bool { return false }

func (d *Disabled) CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error) {
	return nil, d.err()
}

func (d *Disabled) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	return nil, d.err()
}

func (d *Disabled) CancelIntent(ctx context.Context, intentID string) error {
	return d.err()
}

func (d *Disabled) ConstructEvent(payload []byte, signature string) (*Event, error) {
	return nil, d.err()
}
