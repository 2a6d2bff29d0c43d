package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LedgerOp names what happened to a transaction.
type LedgerOp string

const (
	OpCreated LedgerOp = "created"
	OpUpdated LedgerOp = "updated"
	OpDeleted LedgerOp = "deleted"
)

// LedgerEventMessage announces one committed ledger mutation. It carries only
// identifiers; consumers fetch current state from the database, so stale or
// redelivered events are harmless.
type LedgerEventMessage struct {
	EventID       string    `json:"event_id"`
	Op            LedgerOp  `json:"op"`
	TransactionID int64     `json:"transaction_id"`
	AccountIDs    []int64   `json:"account_ids"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEventMessage builds an event for a committed mutation touching the
// given accounts.
func NewLedgerEventMessage(op LedgerOp, transactionID int64, accountIDs []int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		EventID:       uuid.NewString(),
		Op:            op,
		TransactionID: transactionID,
		AccountIDs:    accountIDs,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON parses a message from JSON bytes.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
