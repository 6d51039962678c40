package messaging

import (
	"encoding/json"
	"time"
)

// ChangeMessage is the wire form of a change event shared between instances.
// It carries no document data; receivers re-read from the store.
type ChangeMessage struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	UserID    string    `json:"userId"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
