package amqp

import (
	"encoding/json"
	"time"
)

// NotificationMessage is the wire format for notification deliveries
// published to the broker.
type NotificationMessage struct {
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

func NewNotificationMessage(userID, message, severity string) *NotificationMessage {
	return &NotificationMessage{
		UserID:    userID,
		Message:   message,
		Severity:  severity,
		Timestamp: time.Now(),
	}
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
