// Package protocol defines the signaling message schema shared by the hub
// and the client. Every websocket frame is a Message envelope carrying a
// type tag and a JSON payload; payloads are decoded and validated at the
// channel boundary before dispatch.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type identifies a signaling message.
type Type string

// Client-to-hub message types.
const (
	TypeJoinRoom        Type = "join-room"
	TypeRequestJoinRoom Type = "request-join-room"
	TypeApproveJoin     Type = "approve-join"
	TypeRejectJoin      Type = "reject-join"
	TypeStateChange     Type = "participant-state-change"
)

// Relay message types travel in both directions: clients send them with a
// target id, the hub forwards them with the sender id filled in instead.
const (
	TypeOffer        Type = "offer"
	TypeAnswer       Type = "answer"
	TypeICECandidate Type = "ice-candidate"
	TypeRoomMessage  Type = "room-message"
)

// Hub-to-client message types.
const (
	TypeWelcome              Type = "welcome"
	TypePeerJoined           Type = "peer-joined"
	TypePeerLeft             Type = "peer-left"
	TypeJoinApproved         Type = "join-approved"
	TypeJoinRejected         Type = "join-rejected"
	TypeJoinRequest          Type = "join-request"
	TypeJoinRequestCancelled Type = "join-request-cancelled"
	TypeJoinError            Type = "join-error"
	TypeStateChanged         Type = "participant-state-changed"
)

// Message is the wire envelope for all signaling traffic.
type Message struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var knownTypes = map[Type]bool{
	TypeJoinRoom:             true,
	TypeRequestJoinRoom:      true,
	TypeApproveJoin:          true,
	TypeRejectJoin:           true,
	TypeStateChange:          true,
	TypeOffer:                true,
	TypeAnswer:               true,
	TypeICECandidate:         true,
	TypeRoomMessage:          true,
	TypeWelcome:              true,
	TypePeerJoined:           true,
	TypePeerLeft:             true,
	TypeJoinApproved:         true,
	TypeJoinRejected:         true,
	TypeJoinRequest:          true,
	TypeJoinRequestCancelled: true,
	TypeJoinError:            true,
	TypeStateChanged:         true,
}

// Known reports whether t is part of the closed message set.
func Known(t Type) bool {
	return knownTypes[t]
}

var ErrEmptyPayload = errors.New("empty payload")

// New builds a Message with the payload marshaled to JSON.
func New(t Type, payload any) (*Message, error) {
	if payload == nil {
		return &Message{Type: t}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return &Message{Type: t, Payload: b}, nil
}

// MustNew is New for payloads built from plain structs, where a marshal
// failure is a programming error.
func MustNew(t Type, payload any) *Message {
	m, err := New(t, payload)
	if err != nil {
		panic(err)
	}
	return m
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return ErrEmptyPayload
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// WelcomePayload tells a freshly registered connection its hub-assigned id.
type WelcomePayload struct {
	SocketID string `json:"socketId"`
}

// JoinRoomPayload carries a direct (host-side) room join.
type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

func (p *JoinRoomPayload) Validate() error {
	if p.RoomID == "" {
		return errors.New("roomId is required")
	}
	return nil
}

// RequestJoinPayload asks the room's host for entry.
type RequestJoinPayload struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

func (p *RequestJoinPayload) Validate() error {
	if p.RoomID == "" {
		return errors.New("roomId is required")
	}
	return nil
}

// JoinDecisionPayload approves or rejects a pending join request.
type JoinDecisionPayload struct {
	RoomID   string `json:"roomId"`
	SocketID string `json:"socketId"`
}

func (p *JoinDecisionPayload) Validate() error {
	if p.RoomID == "" {
		return errors.New("roomId is required")
	}
	if p.SocketID == "" {
		return errors.New("socketId is required")
	}
	return nil
}

// SignalPayload carries offer/answer/ICE relay traffic. Clients set Target;
// the hub rewrites it to Sender before forwarding. The negotiation fields
// are opaque to the hub.
type SignalPayload struct {
	Target    string          `json:"target,omitempty"`
	Sender    string          `json:"sender,omitempty"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

func (p *SignalPayload) Validate() error {
	if p.Target == "" {
		return errors.New("target is required")
	}
	return nil
}

// StateChangePayload announces the caller's mute/camera flags to its room.
type StateChangePayload struct {
	RoomID         string `json:"roomId"`
	IsAudioEnabled bool   `json:"isAudioEnabled"`
	IsVideoEnabled bool   `json:"isVideoEnabled"`
}

func (p *StateChangePayload) Validate() error {
	if p.RoomID == "" {
		return errors.New("roomId is required")
	}
	return nil
}

// StateChangedPayload is the hub-side broadcast of a state change.
type StateChangedPayload struct {
	ParticipantID  string `json:"participantId"`
	IsAudioEnabled bool   `json:"isAudioEnabled"`
	IsVideoEnabled bool   `json:"isVideoEnabled"`
}

// RoomMessagePayload is the unprivileged named-message relay used by in-call
// widgets (chat, whiteboard, polls, reactions). Data is opaque to the hub.
type RoomMessagePayload struct {
	RoomID string          `json:"roomId,omitempty"`
	Sender string          `json:"sender,omitempty"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func (p *RoomMessagePayload) Validate() error {
	if p.RoomID == "" {
		return errors.New("roomId is required")
	}
	if p.Event == "" {
		return errors.New("event is required")
	}
	return nil
}

// PeerPayload identifies a peer that joined or left.
type PeerPayload struct {
	SocketID string `json:"socketId"`
}

// RoomRefPayload references a room in join-approved / join-rejected.
type RoomRefPayload struct {
	RoomID string `json:"roomId"`
}

// JoinRequestPayload is delivered to a room's host when someone asks to join.
type JoinRequestPayload struct {
	SocketID string `json:"socketId"`
	UserName string `json:"userName"`
	RoomID   string `json:"roomId"`
}

// JoinRequestCancelledPayload tells the host a pending requester went away.
type JoinRequestCancelledPayload struct {
	SocketID string `json:"socketId"`
	RoomID   string `json:"roomId"`
}

// ErrorPayload carries a room-protocol error back to the caller.
type ErrorPayload struct {
	Message string `json:"message"`
}
