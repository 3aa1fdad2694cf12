package model

import (
	"time"
)

// WebhookStatus represents the processing status of a webhook
type WebhookStatus string

const (
	WebhookStatusPending    WebhookStatus = "pending"
	WebhookStatusProcessing WebhookStatus = "processing"
	WebhookStatusCompleted  WebhookStatus = "completed"
	WebhookStatusIgnored    WebhookStatus = "ignored"
	WebhookStatusFailed     WebhookStatus = "failed"
)

// WebhookEvent is the delivery log of gateway events. The gateway event id
// is unique so redeliveries collapse onto one row.
type WebhookEvent struct {
	ID                 int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider           string        `gorm:"size:20;not null;default:'stripe'" json:"provider"`
	GatewayEventID     string        `gorm:"size:255;uniqueIndex;not null" json:"gateway_event_id"`
	EventType          string        `gorm:"size:100;not null;index" json:"event_type"`
	IntentID           string        `gorm:"size:255;index" json:"intent_id"`
	ChargeID           string        `gorm:"size:255" json:"charge_id,omitempty"`
	FailureCode        string        `gorm:"size:100" json:"failure_code,omitempty"`
	FailureMessage     string        `gorm:"type:text" json:"failure_message,omitempty"`
	Status             WebhookStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ProcessingAttempts int           `gorm:"default:0" json:"processing_attempts"`
	LastError          *string       `gorm:"type:text" json:"last_error,omitempty"`
	NextRetryAt        *time.Time    `json:"next_retry_at,omitempty"`
	ProcessedAt        *time.Time    `json:"processed_at,omitempty"`
	GatewayCreatedAt   *time.Time    `json:"gateway_created_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
}

// TableName specifies the table name for GORM
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// Settled is true once the event needs no further processing.
func (e *WebhookEvent) Settled() bool {
	return e.Status == WebhookStatusCompleted || e.Status == WebhookStatusIgnored
}

const maxRetryDelay = 24 * time.Hour

// RetryDelay is the backoff after the given number of failed attempts:
// 5, 10, 20 ... minutes, capped at one day.
func RetryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > 9 {
		return maxRetryDelay
	}
	d := time.Duration(5<<(attempts-1)) * time.Minute
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}
