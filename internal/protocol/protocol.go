// Package protocol defines the wire envelopes exchanged with chat clients.
// Inbound payloads carry a "type" tag and are decoded into a closed set of
// variants; anything unrecognized or malformed is dropped at the boundary.
package protocol

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/tidwall/gjson"
)

const (
	TypeConnect   = "connect"
	TypeMessage   = "message"
	TypeAdminAuth = "admin_auth"
)

var ErrMalformed = errors.New("malformed client payload")

// Inbound is the decoded form of one client payload. Exactly one of the
// variant pointers is non-nil.
type Inbound struct {
	Connect   *Connect
	Chat      *Chat
	AdminAuth *AdminAuth
}

type Connect struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type Chat struct {
	Message string `json:"message"`
}

type AdminAuth struct {
	Password string `json:"password"`
}

// Decode sniffs the type tag before committing to a strict unmarshal of the
// matching variant.
func Decode(raw []byte) (*Inbound, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrMalformed
	}
	tag := gjson.GetBytes(raw, "type")
	if !tag.Exists() {
		return nil, ErrMalformed
	}

	switch tag.String() {
	case TypeConnect:
		var c Connect
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, ErrMalformed
		}
		return &Inbound{Connect: &c}, nil
	case TypeMessage:
		var c Chat
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, ErrMalformed
		}
		return &Inbound{Chat: &c}, nil
	case TypeAdminAuth:
		var a AdminAuth
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, ErrMalformed
		}
		return &Inbound{AdminAuth: &a}, nil
	default:
		return nil, ErrMalformed
	}
}

// Outbound is the single envelope shape written to clients. Fields are
// omitted when empty so each outbound type stays compact on the wire.
type Outbound struct {
	Type      string `json:"type"`
	Room      string `json:"room,omitempty"`
	From      string `json:"from,omitempty"`
	Message   string `json:"message,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	Pinned    bool   `json:"pinned,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

func System(room, text string) Outbound {
	return Outbound{Type: "system", Room: room, Message: text, Timestamp: time.Now().Unix()}
}

func RoomMessage(room, from, avatar, text, id string) Outbound {
	return Outbound{Type: "message", Room: room, From: from, Avatar: avatar, Message: text, MessageID: id, Timestamp: time.Now().Unix()}
}

func Private(from, text string) Outbound {
	return Outbound{Type: "private", From: from, Message: text, Timestamp: time.Now().Unix()}
}

func Clear(room string) Outbound {
	return Outbound{Type: "clear", Room: room}
}

func Ephemeral(room, from, text, id string) Outbound {
	return Outbound{Type: "ephemeral", Room: room, From: from, Message: text, MessageID: id, Timestamp: time.Now().Unix()}
}

func RemoveEphemeral(room, id string) Outbound {
	return Outbound{Type: "remove_ephemeral", Room: room, MessageID: id}
}

// Encode marshals an outbound envelope. Marshalling these fixed shapes
// cannot fail, so the error is collapsed here.
func Encode(out Outbound) []byte {
	raw, _ := json.Marshal(out)
	return raw
}
