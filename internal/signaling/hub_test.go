package signaling

import (
	"encoding/json"
	"testing"

	"github.com/luismarketmedia/lets-talk-sub000/internal/protocol"
)

func newTestClient(h *Hub, id string) *Client {
	c := &Client{ID: id, Hub: h, Send: make(chan *protocol.Message, 32)}
	h.clients[id] = c
	return c
}

// recv pops one queued message or fails the test.
func recv(t *testing.T, c *Client) *protocol.Message {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	default:
		t.Fatalf("client %s: no message queued", c.ID)
		return nil
	}
}

func recvType(t *testing.T, c *Client, want protocol.Type) *protocol.Message {
	t.Helper()
	msg := recv(t, c)
	if msg.Type != want {
		t.Fatalf("client %s: message type = %q, want %q", c.ID, msg.Type, want)
	}
	return msg
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("client %s: unexpected message %q", c.ID, msg.Type)
	default:
	}
}

func assertJoinError(t *testing.T, c *Client, want string) {
	t.Helper()
	msg := recvType(t, c, protocol.TypeJoinError)
	var p protocol.ErrorPayload
	if err := msg.Decode(&p); err != nil {
		t.Fatalf("decode join-error: %v", err)
	}
	if p.Message != want {
		t.Errorf("error message = %q, want %q", p.Message, want)
	}
}

func TestJoinRoomCreatesAndNotifiesExistingMembers(t *testing.T) {
	h := NewHub(NewRegistry())
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	h.handleJoinRoom(alice, &protocol.JoinRoomPayload{RoomID: "garden"})

	room := h.registry.Get("garden")
	if room == nil {
		t.Fatal("room was not created")
	}
	if host := room.Host(); host == nil || host.ID != "alice" {
		t.Fatal("first joiner is not the host")
	}
	// Nobody else was in the room, so no peer-joined anywhere.
	assertEmpty(t, alice)

	h.handleJoinRoom(bob, &protocol.JoinRoomPayload{RoomID: "garden"})

	msg := recvType(t, alice, protocol.TypePeerJoined)
	var p protocol.PeerPayload
	if err := msg.Decode(&p); err != nil {
		t.Fatalf("decode peer-joined: %v", err)
	}
	if p.SocketID != "bob" {
		t.Errorf("peer-joined socketId = %q, want %q", p.SocketID, "bob")
	}
	// The joiner itself hears nothing; it offers to peers it is told about.
	assertEmpty(t, bob)
}

func TestJoinRoomIdempotent(t *testing.T) {
	h := NewHub(NewRegistry())
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	h.handleJoinRoom(alice, &protocol.JoinRoomPayload{RoomID: "garden"})
	h.handleJoinRoom(bob, &protocol.JoinRoomPayload{RoomID: "garden"})
	recvType(t, alice, protocol.TypePeerJoined)

	h.handleJoinRoom(bob, &protocol.JoinRoomPayload{RoomID: "garden"})

	if got := len(h.registry.Get("garden").Members()); got != 2 {
		t.Errorf("member count = %d, want 2", got)
	}
	// Re-joining must not re-announce.
	assertEmpty(t, alice)
}

func TestApprovalFlow(t *testing.T) {
	h := NewHub(NewRegistry())
	host := newTestClient(h, "host")
	guest := newTestClient(h, "guest")

	h.handleJoinRoom(host, &protocol.JoinRoomPayload{RoomID: "garden"})
	h.handleRequestJoin(guest, &protocol.RequestJoinPayload{RoomID: "garden", UserName: "Bob"})

	req := recvType(t, host, protocol.TypeJoinRequest)
	var reqPayload protocol.JoinRequestPayload
	if err := req.Decode(&reqPayload); err != nil {
		t.Fatalf("decode join-request: %v", err)
	}
	if reqPayload.SocketID != "guest" || reqPayload.UserName != "Bob" {
		t.Errorf("join-request = %+v, want guest/Bob", reqPayload)
	}

	h.handleJoinDecision(host, &protocol.JoinDecisionPayload{RoomID: "garden", SocketID: "guest"}, true)

	recvType(t, guest, protocol.TypeJoinApproved)
	recvType(t, host, protocol.TypePeerJoined)
	// The approved side must not receive its own peer-joined; it waits for
	// the current members' offers.
	assertEmpty(t, guest)

	room := h.registry.Get("garden")
	if !room.IsMember("guest") {
		t.Error("approved requester is not a member")
	}
	if room.PendingCount() != 0 {
		t.Errorf("pending count = %d, want 0", room.PendingCount())
	}
}

func TestRejectFlow(t *testing.T) {
	h := NewHub(NewRegistry())
	host := newTestClient(h, "host")
	guest := newTestClient(h, "guest")

	h.handleJoinRoom(host, &protocol.JoinRoomPayload{RoomID: "garden"})
	h.handleRequestJoin(guest, &protocol.RequestJoinPayload{RoomID: "garden", UserName: "Bob"})
	recvType(t, host, protocol.TypeJoinRequest)

	h.handleJoinDecision(host, &protocol.JoinDecisionPayload{RoomID: "garden", SocketID: "guest"}, false)

	recvType(t, guest, protocol.TypeJoinRejected)
	assertEmpty(t, host)

	if h.registry.Get("garden").IsMember("guest") {
		t.Error("rejected requester became a member")
	}
}

func TestDuplicateJoinRequestIgnored(t *testing.T) {
	h := NewHub(NewRegistry())
	host := newTestClient(h, "host")
	guest := newTestClient(h, "guest")

	h.handleJoinRoom(host, &protocol.JoinRoomPayload{RoomID: "garden"})
	h.handleRequestJoin(guest, &protocol.RequestJoinPayload{RoomID: "garden", UserName: "Bob"})
	recvType(t, host, protocol.TypeJoinRequest)

	h.handleRequestJoin(guest, &protocol.RequestJoinPayload{RoomID: "garden", UserName: "Bob"})

	// The duplicate raises no second prompt and no error.
	assertEmpty(t, host)
	assertEmpty(t, guest)
	if got := h.registry.Get("garden").PendingCount(); got != 1 {
		t.Errorf("pending count = %d, want 1", got)
	}
}

func TestDecisionErrors(t *testing.T) {
	h := NewHub(NewRegistry())
	host := newTestClient(h, "host")
	member := newTestClient(h, "member")
	guest := newTestClient(h, "guest")

	h.handleJoinRoom(host, &protocol.JoinRoomPayload{RoomID: "garden"})
	h.handleJoinRoom(member, &protocol.JoinRoomPayload{RoomID: "garden"})
	recvType(t, host, protocol.TypePeerJoined)

	t.Run("unknown room", func(t *testing.T) {
		h.handleJoinDecision(host, &protocol.JoinDecisionPayload{RoomID: "nowhere", SocketID: "guest"}, true)
		assertJoinError(t, host, errRoomNotFound)
	})

	t.Run("not the host", func(t *testing.T) {
		h.handleRequestJoin(guest, &protocol.RequestJoinPayload{RoomID: "garden", UserName: "Bob"})
		recvType(t, host, protocol.TypeJoinRequest)

		h.handleJoinDecision(member, &protocol.JoinDecisionPayload{RoomID: "garden", SocketID: "guest"}, true)
		assertJoinError(t, member, errNotHost)
		if h.registry.Get("garden").IsMember("guest") {
			t.Error("non-host decision admitted the requester")
		}
		assertEmpty(t, guest)
	})

	t.Run("second decision on the same request", func(t *testing.T) {
		h.handleJoinDecision(host, &protocol.JoinDecisionPayload{RoomID: "garden", SocketID: "guest"}, true)
		recvType(t, guest, protocol.TypeJoinApproved)
		recvType(t, host, protocol.TypePeerJoined)
		recvType(t, member, protocol.TypePeerJoined)

		h.handleJoinDecision(host, &protocol.JoinDecisionPayload{RoomID: "garden", SocketID: "guest"}, true)
		assertJoinError(t, host, errRequestNotFound)
	})
}

func TestRequestJoinErrors(t *testing.T) {
	h := NewHub(NewRegistry())
	host := newTestClient(h, "host")
	guest := newTestClient(h, "guest")

	t.Run("room not found", func(t *testing.T) {
		h.handleRequestJoin(guest, &protocol.RequestJoinPayload{RoomID: "nowhere", UserName: "Bob"})
		assertJoinError(t, guest, errRoomNotFound)
	})

	t.Run("already a member", func(t *testing.T) {
		h.handleJoinRoom(host, &protocol.JoinRoomPayload{RoomID: "garden"})
		h.handleRequestJoin(host, &protocol.RequestJoinPayload{RoomID: "garden", UserName: "Alice"})
		assertJoinError(t, host, errAlreadyMember)
	})
}

func TestRelayRewritesSender(t *testing.T) {
	h := NewHub(NewRegistry())
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	h.handleRelay(alice, protocol.TypeOffer, &protocol.SignalPayload{
		Target: "bob",
		Sender: "spoofed",
		Offer:  offer,
	})

	msg := recvType(t, bob, protocol.TypeOffer)
	var p protocol.SignalPayload
	if err := msg.Decode(&p); err != nil {
		t.Fatalf("decode offer: %v", err)
	}
	if p.Sender != "alice" {
		t.Errorf("sender = %q, want %q", p.Sender, "alice")
	}
	if string(p.Offer) != string(offer) {
		t.Errorf("offer body rewritten: %s", p.Offer)
	}
	assertEmpty(t, alice)
}

func TestRelayToMissingTargetIsDropped(t *testing.T) {
	h := NewHub(NewRegistry())
	alice := newTestClient(h, "alice")

	h.handleRelay(alice, protocol.TypeICECandidate, &protocol.SignalPayload{
		Target:    "gone",
		Candidate: json.RawMessage(`{"candidate":"..."}`),
	})

	// No error back to the sender; negotiation with a vanished peer just
	// stalls until peer-left arrives.
	assertEmpty(t, alice)
}

func TestStateChangeBroadcast(t *testing.T) {
	h := NewHub(NewRegistry())
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")
	outsider := newTestClient(h, "outsider")

	h.handleJoinRoom(alice, &protocol.JoinRoomPayload{RoomID: "garden"})
	h.handleJoinRoom(bob, &protocol.JoinRoomPayload{RoomID: "garden"})
	recvType(t, alice, protocol.TypePeerJoined)

	h.handleStateChange(alice, &protocol.StateChangePayload{
		RoomID:         "garden",
		IsAudioEnabled: false,
		IsVideoEnabled: true,
	})

	msg := recvType(t, bob, protocol.TypeStateChanged)
	var p protocol.StateChangedPayload
	if err := msg.Decode(&p); err != nil {
		t.Fatalf("decode state-changed: %v", err)
	}
	if p.ParticipantID != "alice" || p.IsAudioEnabled || !p.IsVideoEnabled {
		t.Errorf("state-changed = %+v, want alice muted with video on", p)
	}
	assertEmpty(t, alice)

	h.handleStateChange(outsider, &protocol.StateChangePayload{RoomID: "garden", IsAudioEnabled: true})
	assertEmpty(t, alice)
	assertEmpty(t, bob)
	assertEmpty(t, outsider)
}

func TestRoomMessageRelay(t *testing.T) {
	h := NewHub(NewRegistry())
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	h.handleJoinRoom(alice, &protocol.JoinRoomPayload{RoomID: "garden"})
	h.handleJoinRoom(bob, &protocol.JoinRoomPayload{RoomID: "garden"})
	recvType(t, alice, protocol.TypePeerJoined)

	h.handleRoomMessage(bob, &protocol.RoomMessagePayload{
		RoomID: "garden",
		Event:  "poll-vote",
		Data:   json.RawMessage(`{"option":2}`),
	})

	msg := recvType(t, alice, protocol.TypeRoomMessage)
	var p protocol.RoomMessagePayload
	if err := msg.Decode(&p); err != nil {
		t.Fatalf("decode room-message: %v", err)
	}
	if p.Sender != "bob" || p.Event != "poll-vote" {
		t.Errorf("room-message = %+v, want sender bob, event poll-vote", p)
	}
	assertEmpty(t, bob)
}

func TestDisconnectLeavesRoomsAndCancelsRequests(t *testing.T) {
	h := NewHub(NewRegistry())
	host := newTestClient(h, "host")
	bob := newTestClient(h, "bob")
	guest := newTestClient(h, "guest")

	h.handleJoinRoom(host, &protocol.JoinRoomPayload{RoomID: "garden"})
	h.handleJoinRoom(bob, &protocol.JoinRoomPayload{RoomID: "garden"})
	recvType(t, host, protocol.TypePeerJoined)
	h.handleRequestJoin(guest, &protocol.RequestJoinPayload{RoomID: "garden", UserName: "Bob"})
	recvType(t, host, protocol.TypeJoinRequest)

	t.Run("pending requester disconnects", func(t *testing.T) {
		h.disconnect(guest)

		msg := recvType(t, host, protocol.TypeJoinRequestCancelled)
		var p protocol.JoinRequestCancelledPayload
		if err := msg.Decode(&p); err != nil {
			t.Fatalf("decode join-request-cancelled: %v", err)
		}
		if p.SocketID != "guest" {
			t.Errorf("cancelled socketId = %q, want %q", p.SocketID, "guest")
		}
		if got := h.registry.Get("garden").PendingCount(); got != 0 {
			t.Errorf("pending count = %d, want 0", got)
		}
	})

	t.Run("member disconnect broadcasts peer-left", func(t *testing.T) {
		h.disconnect(bob)

		msg := recvType(t, host, protocol.TypePeerLeft)
		var p protocol.PeerPayload
		if err := msg.Decode(&p); err != nil {
			t.Fatalf("decode peer-left: %v", err)
		}
		if p.SocketID != "bob" {
			t.Errorf("peer-left socketId = %q, want %q", p.SocketID, "bob")
		}
		if h.registry.Get("garden") == nil {
			t.Fatal("room destroyed while a member remains")
		}
	})

	t.Run("last member disconnect destroys the room", func(t *testing.T) {
		h.disconnect(host)

		if h.registry.Get("garden") != nil {
			t.Fatal("empty room was not destroyed")
		}

		// The name is free again; a later join starts a fresh room.
		carol := newTestClient(h, "carol")
		h.handleJoinRoom(carol, &protocol.JoinRoomPayload{RoomID: "garden"})
		room := h.registry.Get("garden")
		if room == nil || room.Host().ID != "carol" {
			t.Fatal("recreated room does not have the new joiner as host")
		}
		if room.PendingCount() != 0 {
			t.Errorf("recreated room inherited %d pending requests", room.PendingCount())
		}
	})
}

func TestHostDepartureTransfersApprovalAuthority(t *testing.T) {
	h := NewHub(NewRegistry())
	host := newTestClient(h, "host")
	bob := newTestClient(h, "bob")
	guest := newTestClient(h, "guest")

	h.handleJoinRoom(host, &protocol.JoinRoomPayload{RoomID: "garden"})
	h.handleJoinRoom(bob, &protocol.JoinRoomPayload{RoomID: "garden"})
	recvType(t, host, protocol.TypePeerJoined)

	h.disconnect(host)
	recvType(t, bob, protocol.TypePeerLeft)

	// Bob is now the earliest member and receives join requests.
	h.handleRequestJoin(guest, &protocol.RequestJoinPayload{RoomID: "garden", UserName: "Carol"})
	recvType(t, bob, protocol.TypeJoinRequest)

	h.handleJoinDecision(bob, &protocol.JoinDecisionPayload{RoomID: "garden", SocketID: "guest"}, true)
	recvType(t, guest, protocol.TypeJoinApproved)
	recvType(t, bob, protocol.TypePeerJoined)
}
