// Package protocol defines the JSON frames exchanged over the chat websocket.
// Every frame is an envelope {"type": ..., "payload": ...}; the payload shape
// depends on the type.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"vexa-service/internal/models"
)

// Frame types.
const (
	TypeJoin    = "join"
	TypeMessage = "message"
	TypeError   = "error"
)

// SendFailedMessage is the text of the error frame returned when a message
// could not be stored.
const SendFailedMessage = "Failed to send message"

var (
	ErrUnknownType    = errors.New("protocol: unknown frame type")
	ErrInvalidPayload = errors.New("protocol: invalid payload")
)

var validate = validator.New()

// Frame is the wire envelope.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Inbound is a decoded client frame: either Join or Send.
type Inbound interface {
	inbound()
}

// Join declares the identity of the connection.
type Join struct {
	UserID string `validate:"required"`
}

// Send asks the server to store and deliver a message.
type Send struct {
	Text       string `json:"text" validate:"required"`
	FromUserID string `json:"fromUserId" validate:"required"`
	ToUserID   string `json:"toUserId" validate:"required"`
}

func (Join) inbound() {}
func (Send) inbound() {}

// Validate reports ErrInvalidPayload when a required field is empty.
func (s Send) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// Delivered is the payload pushed to every session of both participants.
type Delivered struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Timestamp  string `json:"timestamp"`
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
}

// DeliveryError tells the sender its message was not stored.
type DeliveryError struct {
	Message string `json:"message"`
}

// DeliveredFrom builds the outbound payload for a persisted message.
func DeliveredFrom(msg models.ChatMessage) Delivered {
	return Delivered{
		ID:         msg.ID,
		Text:       msg.Text,
		Timestamp:  msg.Timestamp(),
		FromUserID: msg.FromUserID,
		ToUserID:   msg.ToUserID,
	}
}

// ParseInbound decodes a raw client frame. Unknown types yield ErrUnknownType;
// undecodable or incomplete payloads yield ErrInvalidPayload.
func ParseInbound(data []byte) (Inbound, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	switch frame.Type {
	case TypeJoin:
		var userID string
		if err := json.Unmarshal(frame.Payload, &userID); err != nil {
			return nil, fmt.Errorf("%w: join payload must be a string", ErrInvalidPayload)
		}
		join := Join{UserID: userID}
		if err := validate.Struct(join); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return join, nil
	case TypeMessage:
		var send Send
		if err := json.Unmarshal(frame.Payload, &send); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return send, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, frame.Type)
	}
}

// EncodeDelivered renders a message frame.
func EncodeDelivered(d Delivered) ([]byte, error) {
	return encode(TypeMessage, d)
}

// EncodeError renders an error frame.
func EncodeError(message string) ([]byte, error) {
	return encode(TypeError, DeliveryError{Message: message})
}

func encode(frameType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", frameType, err)
	}
	return json.Marshal(Frame{Type: frameType, Payload: raw})
}
