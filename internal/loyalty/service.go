package loyalty

import (
	"time"

	"gorm.io/gorm"
)

// RefundNotification carries the data sent out after a refund commits.
type RefundNotification struct {
	TransactionNumber string
	CardNumber        string
	Amount            float64
	PointsReversed    int64
	RefundMethod      string
}

// Notifier dispatches best-effort notifications. Failures are logged and
// never surfaced to the caller.
type Notifier interface {
	NotifyRefund(n RefundNotification) error
}

// Service implements the loyalty card and redemption engine on top of a
// gorm connection.
type Service struct {
	db       *gorm.DB
	qrSecret []byte
	qrTTL    time.Duration
	notifier Notifier
	now      func() time.Time
}

// NewService constructs the engine. notifier may be nil.
func NewService(db *gorm.DB, qrSecret string, qrTTL time.Duration, notifier Notifier) *Service {
	return &Service{
		db:       db,
		qrSecret: []byte(qrSecret),
		qrTTL:    qrTTL,
		notifier: notifier,
		now:      time.Now,
	}
}
