package signaling

import (
	"log/slog"
	"time"

	"github.com/luismarketmedia/lets-talk-sub000/internal/protocol"
)

// Room-protocol error messages, delivered to the caller only via join-error
// and never broadcast.
const (
	errRoomNotFound    = "room not found"
	errAlreadyMember   = "already a member of this room"
	errNotHost         = "only the host can decide join requests"
	errRequestNotFound = "join request not found"
)

// inbound pairs a decoded message with the connection that sent it, so
// handlers always know the sender's channel identity.
type inbound struct {
	client *Client
	msg    *protocol.Message
}

// Hub is the single-process signaling authority. It owns the room registry
// and the per-room join-approval queues, relays negotiation messages by
// target id, and broadcasts membership events. No media ever passes through
// it.
//
// All state mutation happens on the Run goroutine; each inbound message is
// handled to completion before the next, so no locking is needed.
type Hub struct {
	registry *Registry

	// clients maps connection ids to registered clients.
	clients map[string]*Client

	Register   chan *Client
	Unregister chan *Client
	Inbound    chan *inbound
}

// NewHub creates a hub around an explicit room registry.
func NewHub(registry *Registry) *Hub {
	return &Hub{
		registry:   registry,
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *inbound),
	}
}

// Run starts the hub's main processing loop. This is the single goroutine
// that safely manages all state (registry, clients, pending requests).
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.register(client)

		case client := <-h.Unregister:
			h.disconnect(client)

		case in := <-h.Inbound:
			h.dispatch(in.client, in.msg)
		}
	}
}

func (h *Hub) register(c *Client) {
	h.clients[c.ID] = c
	slog.Info("client registered", "client", c.ID)

	// The connection learns its own id before anything else; every later
	// peer-joined / sender field refers to ids from this namespace.
	c.Send <- protocol.MustNew(protocol.TypeWelcome, protocol.WelcomePayload{SocketID: c.ID})
}

// dispatch validates the envelope and routes it. Unknown types and malformed
// payloads are logged and dropped; they never tear down the connection.
func (h *Hub) dispatch(c *Client, msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeJoinRoom:
		var p protocol.JoinRoomPayload
		if err := decodeValid(msg, &p); err != nil {
			slog.Warn("bad join-room", "client", c.ID, "err", err)
			return
		}
		h.handleJoinRoom(c, &p)

	case protocol.TypeRequestJoinRoom:
		var p protocol.RequestJoinPayload
		if err := decodeValid(msg, &p); err != nil {
			slog.Warn("bad request-join-room", "client", c.ID, "err", err)
			return
		}
		h.handleRequestJoin(c, &p)

	case protocol.TypeApproveJoin:
		var p protocol.JoinDecisionPayload
		if err := decodeValid(msg, &p); err != nil {
			slog.Warn("bad approve-join", "client", c.ID, "err", err)
			return
		}
		h.handleJoinDecision(c, &p, true)

	case protocol.TypeRejectJoin:
		var p protocol.JoinDecisionPayload
		if err := decodeValid(msg, &p); err != nil {
			slog.Warn("bad reject-join", "client", c.ID, "err", err)
			return
		}
		h.handleJoinDecision(c, &p, false)

	case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeICECandidate:
		var p protocol.SignalPayload
		if err := decodeValid(msg, &p); err != nil {
			slog.Warn("bad signal", "client", c.ID, "type", msg.Type, "err", err)
			return
		}
		h.handleRelay(c, msg.Type, &p)

	case protocol.TypeStateChange:
		var p protocol.StateChangePayload
		if err := decodeValid(msg, &p); err != nil {
			slog.Warn("bad participant-state-change", "client", c.ID, "err", err)
			return
		}
		h.handleStateChange(c, &p)

	case protocol.TypeRoomMessage:
		var p protocol.RoomMessagePayload
		if err := decodeValid(msg, &p); err != nil {
			slog.Warn("bad room-message", "client", c.ID, "err", err)
			return
		}
		h.handleRoomMessage(c, &p)

	default:
		slog.Warn("unknown message type", "client", c.ID, "type", msg.Type)
	}
}

type validator interface {
	Validate() error
}

func decodeValid(msg *protocol.Message, v validator) error {
	if err := msg.Decode(v); err != nil {
		return err
	}
	return v.Validate()
}

// handleJoinRoom adds the caller to the room, creating it (with the caller
// as host) if absent. Always succeeds for a non-empty room id.
func (h *Hub) handleJoinRoom(c *Client, p *protocol.JoinRoomPayload) {
	room, created := h.registry.GetOrCreate(p.RoomID)
	if created {
		slog.Info("room created", "room", room.ID, "host", c.ID)
	}

	others := room.Others(c.ID)
	room.AddMember(c)
	slog.Info("member joined", "room", room.ID, "client", c.ID)

	joined := protocol.MustNew(protocol.TypePeerJoined, protocol.PeerPayload{SocketID: c.ID})
	for _, other := range others {
		other.Send <- joined
	}
}

// handleRequestJoin enqueues a pending join request and notifies the host.
// A second request from the same caller while one is pending is ignored.
func (h *Hub) handleRequestJoin(c *Client, p *protocol.RequestJoinPayload) {
	room := h.registry.Get(p.RoomID)
	if room == nil {
		h.sendError(c, errRoomNotFound)
		return
	}
	if room.IsMember(c.ID) {
		h.sendError(c, errAlreadyMember)
		return
	}

	if !room.AddPending(&PendingJoin{
		RequesterID: c.ID,
		DisplayName: p.UserName,
		RequestedAt: time.Now(),
	}) {
		slog.Debug("duplicate join request ignored", "room", room.ID, "client", c.ID)
		return
	}

	slog.Info("join requested", "room", room.ID, "client", c.ID, "name", p.UserName)

	if host := room.Host(); host != nil {
		host.Send <- protocol.MustNew(protocol.TypeJoinRequest, protocol.JoinRequestPayload{
			SocketID: c.ID,
			UserName: p.UserName,
			RoomID:   room.ID,
		})
	}
}

// handleJoinDecision resolves a pending request. Approval moves the
// requester from pending to member exactly once; rejection never adds it.
func (h *Hub) handleJoinDecision(c *Client, p *protocol.JoinDecisionPayload, approve bool) {
	room := h.registry.Get(p.RoomID)
	if room == nil {
		h.sendError(c, errRoomNotFound)
		return
	}
	if host := room.Host(); host == nil || host.ID != c.ID {
		h.sendError(c, errNotHost)
		return
	}

	pending := room.TakePending(p.SocketID)
	if pending == nil {
		h.sendError(c, errRequestNotFound)
		return
	}

	target, ok := h.clients[p.SocketID]
	if !ok {
		// Requester vanished between cancellation and this decision.
		h.sendError(c, errRequestNotFound)
		return
	}

	if !approve {
		slog.Info("join rejected", "room", room.ID, "client", target.ID)
		target.Send <- protocol.MustNew(protocol.TypeJoinRejected, protocol.RoomRefPayload{RoomID: room.ID})
		return
	}

	slog.Info("join approved", "room", room.ID, "client", target.ID)
	target.Send <- protocol.MustNew(protocol.TypeJoinApproved, protocol.RoomRefPayload{RoomID: room.ID})

	joined := protocol.MustNew(protocol.TypePeerJoined, protocol.PeerPayload{SocketID: target.ID})
	for _, member := range room.Members() {
		member.Send <- joined
	}
	room.AddMember(target)
}

// handleRelay forwards offer/answer/ice-candidate to the target connection
// with the sender id filled in. The negotiation payload is opaque. Missing
// targets are dropped silently; the sender is never told.
func (h *Hub) handleRelay(c *Client, t protocol.Type, p *protocol.SignalPayload) {
	target, ok := h.clients[p.Target]
	if !ok {
		slog.Debug("relay dropped, target gone", "type", t, "from", c.ID, "target", p.Target)
		return
	}

	target.Send <- protocol.MustNew(t, protocol.SignalPayload{
		Sender:    c.ID,
		Offer:     p.Offer,
		Answer:    p.Answer,
		Candidate: p.Candidate,
	})
}

// handleStateChange broadcasts the caller's media flags to the rest of the
// room. Non-members are dropped silently (logged only).
func (h *Hub) handleStateChange(c *Client, p *protocol.StateChangePayload) {
	room := h.registry.Get(p.RoomID)
	if room == nil || !room.IsMember(c.ID) {
		slog.Warn("state change from non-member dropped", "room", p.RoomID, "client", c.ID)
		return
	}

	changed := protocol.MustNew(protocol.TypeStateChanged, protocol.StateChangedPayload{
		ParticipantID:  c.ID,
		IsAudioEnabled: p.IsAudioEnabled,
		IsVideoEnabled: p.IsVideoEnabled,
	})
	for _, other := range room.Others(c.ID) {
		other.Send <- changed
	}
}

// handleRoomMessage relays a named widget message to the rest of the room.
// The hub grants no special privilege: any member may publish any event.
func (h *Hub) handleRoomMessage(c *Client, p *protocol.RoomMessagePayload) {
	room := h.registry.Get(p.RoomID)
	if room == nil || !room.IsMember(c.ID) {
		slog.Warn("room message from non-member dropped", "room", p.RoomID, "client", c.ID)
		return
	}

	relayed := protocol.MustNew(protocol.TypeRoomMessage, protocol.RoomMessagePayload{
		Sender: c.ID,
		Event:  p.Event,
		Data:   p.Data,
	})
	for _, other := range room.Others(c.ID) {
		other.Send <- relayed
	}
}

// disconnect treats a transport-level close as an implicit leave: the client
// is removed from every room it belonged to (with peer-left broadcasts and
// empty-room destruction) and every pending request it had is cancelled
// toward that room's host.
func (h *Hub) disconnect(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	slog.Info("client unregistered", "client", c.ID)

	for _, room := range h.registry.Rooms() {
		if room.RemoveMember(c.ID) {
			left := protocol.MustNew(protocol.TypePeerLeft, protocol.PeerPayload{SocketID: c.ID})
			for _, other := range room.Members() {
				other.Send <- left
			}
			if room.Empty() {
				h.registry.Delete(room.ID)
				slog.Info("room destroyed", "room", room.ID)
			}
			continue
		}

		if pending := room.TakePending(c.ID); pending != nil {
			if host := room.Host(); host != nil {
				host.Send <- protocol.MustNew(protocol.TypeJoinRequestCancelled, protocol.JoinRequestCancelledPayload{
					SocketID: c.ID,
					RoomID:   room.ID,
				})
			}
		}
	}

	close(c.Send)
}

func (h *Hub) sendError(c *Client, message string) {
	c.Send <- protocol.MustNew(protocol.TypeJoinError, protocol.ErrorPayload{Message: message})
}
