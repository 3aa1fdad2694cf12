package provider

import (
	"go.uber.org/zap"

	"github.com/wekeepgrowing/portal-billing/internal/config"
	"github.com/wekeepgrowing/portal-billing/internal/domain/provider"
	stripeProvider "github.com/wekeepgrowing/portal-billing/internal/infrastructure/provider/stripe"
)

// NewGateway returns the Stripe gateway, or a disabled one when the Stripe
// credentials are not configured.
func NewGateway(cfg config.StripeConfig, logger *zap.Logger) provider.PaymentGateway {
	if !cfg.Configured() {
		reason := "stripe secret key or webhook secret not configured"
		logger.Warn("Payments disabled", zap.String("reason", reason))
		return provider.NewDisabled(reason)
	}

	return stripeProvider.NewStripeProvider(cfg.SecretKey, cfg.WebhookSecret, cfg.APITimeout, logger)
}
