// Package notify is the seam between the back office and its outbound
// channels. Delivery (WhatsApp, email) lives outside this repo; the service
// only emits events through the Notifier interface.
package notify

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Notifier receives business events worth telling someone about.
type Notifier interface {
	PaymentRecorded(customerName string, amount decimal.Decimal)
	LoanClosed(customerKey string, loanID string)
}

// LogNotifier writes events to the structured log instead of delivering
// them anywhere. It is the default wiring until a real channel is attached.
type LogNotifier struct {
	log *zap.SugaredLogger
}

func NewLogNotifier(log *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) PaymentRecorded(customerName string, amount decimal.Decimal) {
	n.log.Infow("payment recorded", "customer", customerName, "amount", amount.StringFixed(2))
}

func (n *LogNotifier) LoanClosed(customerKey string, loanID string) {
	n.log.Infow("loan closed", "customer", customerKey, "loan_id", loanID)
}
