package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/portal-billing/internal/adapter/repository"
	domainRepo "github.com/wekeepgrowing/portal-billing/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Transactor domainRepo.Transactor
	Payment    domainRepo.PaymentRepository
	Invoice    domainRepo.InvoiceRepository
	Sequence   domainRepo.SequenceRepository
	Webhook    domainRepo.WebhookEventRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Transactor: repository.NewTransactor(db),
		Payment:    repository.NewPaymentRepository(db, logger),
		Invoice:    repository.NewInvoiceRepository(db, logger),
		Sequence:   repository.NewSequenceRepository(db),
		Webhook:    repository.NewWebhookRepository(db, logger),
	}
}
