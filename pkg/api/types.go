package api

import "encoding/json"

// Envelope is the uniform REST response body. Success responses carry
// Data; failures carry Error.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Frame is a single relay websocket message in either direction.
type Frame struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}
