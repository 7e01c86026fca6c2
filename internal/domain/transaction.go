package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord is a validated transfer between two accounts.
type TransactionRecord struct {
	ID        string          `json:"transaction_id"`
	Sender    string          `json:"sender_id"`
	Receiver  string          `json:"receiver_id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// Counterparty returns the other side of the record relative to accountID.
func (r TransactionRecord) Counterparty(accountID string) string {
	if r.Sender == accountID {
		return r.Receiver
	}
	return r.Sender
}
