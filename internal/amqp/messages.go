package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

type MessageType string

const (
	TypeTransactionSync   MessageType = "transaction.sync"
	TypeTransactionDelete MessageType = "transaction.delete"
)

// TransactionMessage is a lightweight notification about one ledger row.
// The worker loads the full transaction from the database by ID; delete
// messages carry the date because the row no longer exists.
type TransactionMessage struct {
	Type      MessageType `json:"type"`
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Date      core.Date   `json:"date"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewTransactionSyncMessage(id, userID int64) *TransactionMessage {
	return &TransactionMessage{
		Type:      TypeTransactionSync,
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func NewTransactionDeleteMessage(id, userID int64, date core.Date) *TransactionMessage {
	return &TransactionMessage{
		Type:      TypeTransactionDelete,
		ID:        id,
		UserID:    userID,
		Date:      date,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionMessageFromJSON decodes and validates a message.
func TransactionMessageFromJSON(data []byte) (*TransactionMessage, error) {
	var msg TransactionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case TypeTransactionSync, TypeTransactionDelete:
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("invalid transaction id %d", msg.ID)
	}
	return &msg, nil
}
