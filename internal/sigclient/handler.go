package sigclient

import (
	"log/slog"

	"github.com/luismarketmedia/lets-talk-sub000/internal/protocol"
)

// MessageSource is the stream a Handler drains. *Client satisfies it; tests
// feed a plain channel.
type MessageSource interface {
	Incoming() <-chan *protocol.Message
}

// Handler routes incoming hub messages to typed channels. Negotiation
// traffic, membership events and approval-flow events each get their own
// channel so independent consumers (coordinator, approval UI) never steal
// each other's messages.
type Handler struct {
	source MessageSource

	Welcome              chan string
	PeerJoined           chan string
	PeerLeft             chan string
	Offer                chan *protocol.SignalPayload
	Answer               chan *protocol.SignalPayload
	Candidate            chan *protocol.SignalPayload
	JoinApproved         chan string
	JoinRejected         chan string
	JoinRequest          chan *protocol.JoinRequestPayload
	JoinRequestCancelled chan *protocol.JoinRequestCancelledPayload
	StateChanged         chan *protocol.StateChangedPayload
	RoomMessage          chan *protocol.RoomMessagePayload
	JoinError            chan string

	closed bool
}

// NewHandler creates a handler over the given message source.
func NewHandler(source MessageSource) *Handler {
	return &Handler{
		source:               source,
		Welcome:              make(chan string, 1),
		PeerJoined:           make(chan string, 8),
		PeerLeft:             make(chan string, 8),
		Offer:                make(chan *protocol.SignalPayload, 32),
		Answer:               make(chan *protocol.SignalPayload, 32),
		Candidate:            make(chan *protocol.SignalPayload, 64),
		JoinApproved:         make(chan string, 1),
		JoinRejected:         make(chan string, 1),
		JoinRequest:          make(chan *protocol.JoinRequestPayload, 8),
		JoinRequestCancelled: make(chan *protocol.JoinRequestCancelledPayload, 8),
		StateChanged:         make(chan *protocol.StateChangedPayload, 8),
		RoomMessage:          make(chan *protocol.RoomMessagePayload, 32),
		JoinError:            make(chan string, 1),
	}
}

// Start drains the source until it closes, routing each message. Run it in
// its own goroutine.
func (h *Handler) Start() {
	for msg := range h.source.Incoming() {
		switch msg.Type {

		case protocol.TypeWelcome:
			var p protocol.WelcomePayload
			if msg.Decode(&p) == nil {
				h.Welcome <- p.SocketID
			}

		case protocol.TypePeerJoined:
			var p protocol.PeerPayload
			if msg.Decode(&p) == nil {
				h.PeerJoined <- p.SocketID
			}

		case protocol.TypePeerLeft:
			var p protocol.PeerPayload
			if msg.Decode(&p) == nil {
				h.PeerLeft <- p.SocketID
			}

		case protocol.TypeOffer:
			h.routeSignal(msg, h.Offer)

		case protocol.TypeAnswer:
			h.routeSignal(msg, h.Answer)

		case protocol.TypeICECandidate:
			h.routeSignal(msg, h.Candidate)

		case protocol.TypeJoinApproved:
			var p protocol.RoomRefPayload
			if msg.Decode(&p) == nil {
				h.JoinApproved <- p.RoomID
			}

		case protocol.TypeJoinRejected:
			var p protocol.RoomRefPayload
			if msg.Decode(&p) == nil {
				h.JoinRejected <- p.RoomID
			}

		case protocol.TypeJoinRequest:
			var p protocol.JoinRequestPayload
			if msg.Decode(&p) == nil {
				h.JoinRequest <- &p
			}

		case protocol.TypeJoinRequestCancelled:
			var p protocol.JoinRequestCancelledPayload
			if msg.Decode(&p) == nil {
				h.JoinRequestCancelled <- &p
			}

		case protocol.TypeStateChanged:
			var p protocol.StateChangedPayload
			if msg.Decode(&p) == nil {
				h.StateChanged <- &p
			}

		case protocol.TypeRoomMessage:
			var p protocol.RoomMessagePayload
			if msg.Decode(&p) == nil {
				h.RoomMessage <- &p
			}

		case protocol.TypeJoinError:
			var p protocol.ErrorPayload
			if msg.Decode(&p) == nil {
				h.JoinError <- p.Message
			}

		default:
			slog.Debug("unhandled message type", "type", msg.Type)
		}
	}
}

func (h *Handler) routeSignal(msg *protocol.Message, ch chan *protocol.SignalPayload) {
	var p protocol.SignalPayload
	if err := msg.Decode(&p); err != nil {
		slog.Warn("malformed signal payload", "type", msg.Type, "err", err)
		return
	}
	ch <- &p
}

// Close closes all handler channels.
func (h *Handler) Close() {
	if h.closed {
		return
	}
	h.closed = true

	close(h.Welcome)
	close(h.PeerJoined)
	close(h.PeerLeft)
	close(h.Offer)
	close(h.Answer)
	close(h.Candidate)
	close(h.JoinApproved)
	close(h.JoinRejected)
	close(h.JoinRequest)
	close(h.JoinRequestCancelled)
	close(h.StateChanged)
	close(h.RoomMessage)
	close(h.JoinError)
}
