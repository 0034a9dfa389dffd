package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Action string

const (
	ActionUpsert Action = "upsert"
	ActionDelete Action = "delete"
)

// EntrySyncMessage tells the replica worker that an entry changed. It carries
// only the ID; the worker reads the current row from the database.
type EntrySyncMessage struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	Version   int64     `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntrySyncMessage(id string, version int64) *EntrySyncMessage {
	return &EntrySyncMessage{ID: id, Action: ActionUpsert, Version: version, Timestamp: time.Now()}
}

func NewEntryDeleteMessage(id string) *EntrySyncMessage {
	return &EntrySyncMessage{ID: id, Action: ActionDelete, Timestamp: time.Now()}
}

// ToJSON converts the message to JSON bytes
func (m *EntrySyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntrySyncMessageFromJSON decodes and validates a message body.
func EntrySyncMessageFromJSON(data []byte) (*EntrySyncMessage, error) {
	var msg EntrySyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errors.New("message without entry id")
	}
	switch msg.Action {
	case ActionUpsert, ActionDelete:
	case "":
		msg.Action = ActionUpsert
	default:
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	return &msg, nil
}
