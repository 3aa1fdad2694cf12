package model

import (
	"fmt"
	"time"
)

// Sequence scopes. Payments and invoices number independently.
const (
	SequenceScopePayment = "payment"
	SequenceScopeInvoice = "invoice"
)

// Sequence is the per scope, per year counter behind document numbers.
type Sequence struct {
	Scope     string    `gorm:"primaryKey;size:32"`
	Year      int       `gorm:"primaryKey;autoIncrement:false"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (Sequence) TableName() string {
	return "document_sequences"
}

// FormatInvoiceNumber renders INV-{year}-{5 digit sequence}. Values past
// 99999 keep all their digits.
func FormatInvoiceNumber(year int, n int64) string {
	return fmt.Sprintf("INV-%d-%05d", year, n)
}
