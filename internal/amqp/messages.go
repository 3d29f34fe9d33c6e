package amqp

import (
	"encoding/json"
	"time"
)

// MemorandumPostingMessage asks the worker to post a memorandum's
// transactions to the ledger. It carries only the ID; the worker
// fetches the transactions from the database.
type MemorandumPostingMessage struct {
	MemorandumID string    `json:"memorandum_id"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewMemorandumPostingMessage(memorandumID string) *MemorandumPostingMessage {
	return &MemorandumPostingMessage{
		MemorandumID: memorandumID,
		Timestamp:    time.Now(),
	}
}

func (m *MemorandumPostingMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MemorandumPostingMessageFromJSON(data []byte) (*MemorandumPostingMessage, error) {
	var msg MemorandumPostingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
