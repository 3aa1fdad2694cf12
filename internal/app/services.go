package app

import (
	"go.uber.org/zap"

	"github.com/wekeepgrowing/portal-billing/internal/adapter/repository"
	"github.com/wekeepgrowing/portal-billing/internal/config"
	"github.com/wekeepgrowing/portal-billing/internal/domain/provider"
	domainRepo "github.com/wekeepgrowing/portal-billing/internal/domain/repository"
	"github.com/wekeepgrowing/portal-billing/internal/infrastructure/database"
	"github.com/wekeepgrowing/portal-billing/internal/infrastructure/messaging"
	providerFactory "github.com/wekeepgrowing/portal-billing/internal/infrastructure/provider"
	"github.com/wekeepgrowing/portal-billing/internal/usecase"
)

// Services is the container of every use case the transports call into.
type Services struct {
	Gateway       provider.PaymentGateway
	Notifications *usecase.NotificationService
	Invoices      *usecase.InvoiceService
	Reconciler    *usecase.ReconciliationService
	Payments      *usecase.PaymentService

	Repositories           *database.Repositories
	NotificationRepository *repository.NotificationRepository
}

// NewServices builds the use cases over infra. Lower-level services are
// created first because the payment service depends on the others.
func NewServices(cfg *config.Config, infra *Infrastructure, logger *zap.Logger) *Services {
	repos := database.NewRepositories(infra.DB, logger)
	notificationRepo := repository.NewNotificationRepository(infra.Mongo.Database(cfg.Mongo.Database), logger)

	var publisher domainRepo.NotificationPublisher = messaging.NewNoopPublisher()
	var subscriber domainRepo.NotificationSubscriber = messaging.NewNoopSubscriber()
	if infra.Redis != nil {
		publisher = messaging.NewRedisNotificationPublisher(infra.Redis, cfg.Redis.Channel)
		subscriber = messaging.NewRedisNotificationSubscriber(infra.Redis, cfg.Redis.Channel, logger)
	}

	gateway := providerFactory.NewGateway(cfg.Stripe, logger)

	s := &Services{
		Gateway:                gateway,
		Repositories:           repos,
		NotificationRepository: notificationRepo,
	}

	s.Notifications = usecase.NewNotificationService(notificationRepo, publisher, subscriber, logger)

	s.Invoices = usecase.NewInvoiceService(
		repos.Transactor,
		repos.Invoice,
		repos.Payment,
		repos.Sequence,
		cfg.Billing,
		logger,
	)

	s.Reconciler = usecase.NewReconciliationService(
		repos.Transactor,
		repos.Payment,
		repos.Invoice,
		repos.Webhook,
		gateway,
		s.Notifications,
		logger,
	)

	s.Payments = usecase.NewPaymentService(
		repos.Transactor,
		repos.Payment,
		repos.Invoice,
		repos.Sequence,
		gateway,
		s.Reconciler,
		s.Invoices,
		cfg.Billing,
		logger,
	)

	return s
}
