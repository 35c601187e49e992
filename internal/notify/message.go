package notify

import "time"

// MessageType discriminates notification envelopes.
type MessageType string

// Message types delivered to observers.
const (
	TypeConnected      MessageType = "connected"
	TypeJobUpdate      MessageType = "job_update"
	TypeProgressUpdate MessageType = "progress_update"
	TypeError          MessageType = "error"
	TypePong           MessageType = "pong"
	TypeEcho           MessageType = "echo"
	TypeSystemStats    MessageType = "system_stats"
)

// Message is the envelope every observer receives, whatever the transport.
type Message struct {
	Type      MessageType    `json:"type"`
	JobID     string         `json:"job_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewMessage builds a Message stamped with the current UTC time.
func NewMessage(t MessageType, jobID string, data map[string]any) Message {
	return Message{
		Type:      t,
		JobID:     jobID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// inbound is the shape of messages observers send to the server.
type inbound struct {
	Type  string `json:"type"`
	JobID string `json:"job_id"`
}
