package proto

import (
	"encoding/json"
	"fmt"
)

// Action identifiers routed by the gateway.
const (
	ActionAuthenticate = "authenticate"
	ActionMessage      = "message"
	ActionTopic        = "topic"
	ActionRegistryRoom = "registry.room"
	ActionRoom         = "room"
)

// StatusDepleted marks a room for teardown in a registry.room request.
const StatusDepleted = "DEPLETED"

// DefaultTopic is used when a room request carries no topic.
const DefaultTopic = "/topic <string>"

// ErrMalformedEnvelope reports an inbound frame that is not a valid envelope.
var ErrMalformedEnvelope = fmt.Errorf("malformed envelope")

// Envelope is one inbound frame: an opaque correlation header, an action
// routing key, and action-specific fields kept in the raw frame.
type Envelope struct {
	Header json.RawMessage `json:"header"`
	Action string          `json:"action"`

	raw []byte
}

// Parse decodes one frame into an Envelope, retaining the raw bytes so
// handlers can decode their action-specific fields from the same frame.
func Parse(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	env.raw = data
	return &env, nil
}

// Decode unmarshals the envelope's action-specific fields into v.
func (e *Envelope) Decode(v any) error {
	return json.Unmarshal(e.raw, v)
}

// AuthenticateRequest carries credentials to verify against the account store.
type AuthenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// MessageRequest is a chat message to be appended to a room's history.
type MessageRequest struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
	Room    string `json:"room"`
	Command string `json:"command"`
}

// TopicRequest changes the topic of an existing room.
type TopicRequest struct {
	Room  string `json:"room"`
	Topic string `json:"topic"`
}

// RegistryRequest notifies the gateway of a room status transition.
type RegistryRequest struct {
	Room   string `json:"room"`
	Status string `json:"status"`
}

// RoomRequest loads a room, creating it when absent.
type RoomRequest struct {
	Room     string `json:"room"`
	Topic    string `json:"topic"`
	Username string `json:"username"`
}

// AuthenticateResponse is sent on successful credential verification.
type AuthenticateResponse struct {
	Header   json.RawMessage `json:"header"`
	Username string          `json:"username"`
	Token    string          `json:"token"`
	Expiry   int64           `json:"expiry"`
}

// AuthenticateFailure forwards the account store's failure to the caller.
type AuthenticateFailure struct {
	Header json.RawMessage `json:"header"`
	Error  string          `json:"error"`
}

// RoomCreatedResponse is sent when a room request creates the room.
// A fresh room has no history, so none is attached.
type RoomCreatedResponse struct {
	Header  json.RawMessage `json:"header"`
	Room    string          `json:"room"`
	Topic   string          `json:"topic"`
	Owner   string          `json:"owner"`
	Created bool            `json:"created"`
}

// RoomLoadedResponse is sent when the room already existed. History is
// always present, [] for a room with no messages.
type RoomLoadedResponse struct {
	Header  json.RawMessage `json:"header"`
	Room    string          `json:"room"`
	Topic   string          `json:"topic"`
	Owner   string          `json:"owner"`
	History []ChatMessage   `json:"history"`
}

// ChatMessage is one history entry as it appears on the wire.
type ChatMessage struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
	Room    string `json:"room"`
	Command string `json:"command"`
}
