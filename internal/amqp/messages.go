package amqp

import (
	"encoding/json"
	"time"
)

// BillCreatedMessage announces a freshly submitted bill. It carries
// only the id and owner; consumers fetch the full record from the
// bills API themselves.
type BillCreatedMessage struct {
	BillID    string    `json:"bill_id"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBillCreatedMessage creates a message stamped with the current time.
func NewBillCreatedMessage(billID, email string) *BillCreatedMessage {
	return &BillCreatedMessage{
		BillID:    billID,
		Email:     email,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *BillCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BillCreatedMessageFromJSON creates a message from JSON bytes.
func BillCreatedMessageFromJSON(data []byte) (*BillCreatedMessage, error) {
	var msg BillCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
