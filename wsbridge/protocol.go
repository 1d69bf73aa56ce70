package wsbridge

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"taskweave/streamers"
)

// MessageType identifies an envelope on the bridge connection.
type MessageType string

const (
	TypeRegister     MessageType = "register"
	TypeRegisterAck  MessageType = "register_ack"
	TypeHeartbeat    MessageType = "heartbeat"
	TypeHeartbeatAck MessageType = "heartbeat_ack"
	TypeRunEvent     MessageType = "run_event"
	TypeRunCompleted MessageType = "run_completed"
	TypeStartRun     MessageType = "start_run"
	TypeCancelRun    MessageType = "cancel_run"
	TypeAck          MessageType = "ack"
	TypeError        MessageType = "error"
)

// Envelope wraps every message. Requests and their responses share a
// RequestID; events have none.
type Envelope struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// SolverInfo describes a registered solver to the receiving side.
type SolverInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

type RegisterPayload struct {
	InstanceName string       `json:"instanceName"`
	Version      string       `json:"version"`
	Solvers      []SolverInfo `json:"solvers,omitempty"`
}

type RegisterAckPayload struct {
	InstanceID string `json:"instanceId"`
	Accepted   bool   `json:"accepted"`
	Reason     string `json:"reason,omitempty"`
}

type RunEventPayload struct {
	RunID string          `json:"runId"`
	Event streamers.Event `json:"event"`
}

type RunCompletedPayload struct {
	RunID  string `json:"runId"`
	Done   bool   `json:"done"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type CancelRunPayload struct {
	RunID string `json:"runId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newEnvelope(t MessageType, requestID string, payload any) (*Envelope, error) {
	env := &Envelope{Type: t, RequestID: requestID}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", t, err)
		}
		env.Payload = data
	}
	return env, nil
}

// NewRequest creates an envelope that expects a response.
func NewRequest(t MessageType, payload any) (*Envelope, error) {
	return newEnvelope(t, uuid.New().String(), payload)
}

// NewResponse creates the response to requestID.
func NewResponse(requestID string, t MessageType, payload any) (*Envelope, error) {
	return newEnvelope(t, requestID, payload)
}

// NewEvent creates a one-way envelope.
func NewEvent(t MessageType, payload any) (*Envelope, error) {
	return newEnvelope(t, "", payload)
}

// NewError creates an error response to requestID.
func NewError(requestID, code, message string) (*Envelope, error) {
	return newEnvelope(TypeError, requestID, &ErrorPayload{Code: code, Message: message})
}

// DecodePayload unmarshals the envelope payload into v.
func DecodePayload(env *Envelope, v any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%s envelope has no payload", env.Type)
	}
	return json.Unmarshal(env.Payload, v)
}

type StartRunPayload struct {
	Request string `json:"request"`
}

type StartRunAckPayload struct {
	RunID string `json:"runId"`
}
