package session

import (
	"github.com/pion/webrtc/v4"

	"github.com/luismarketmedia/lets-talk-sub000/internal/rtcmsg"
)

// EventKind labels events the coordinator surfaces to its consumer (the CLI
// or an embedding UI).
type EventKind int

const (
	// EventJoinApproved fires when the host lets a requester in.
	EventJoinApproved EventKind = iota

	// EventJoinRejected fires when the host turns a requester away. Local
	// media has already been released when it is delivered.
	EventJoinRejected

	// EventJoinError carries a room-protocol error from the hub.
	EventJoinError

	// EventPeerConnected fires once a link reaches the connected state.
	EventPeerConnected

	// EventPeerLeft fires after a remote's link has been torn down.
	EventPeerLeft

	// EventRemoteTrack delivers an inbound media track. The consumer owns
	// reading from it.
	EventRemoteTrack

	// EventChat and EventReaction carry data-channel widget traffic.
	EventChat
	EventReaction

	// EventScreenShareEnded fires when a screen share stops, including the
	// source-initiated "share ended" auto-revert.
	EventScreenShareEnded
)

// Event is a coordinator notification. Only the fields relevant to the kind
// are set.
type Event struct {
	Kind     EventKind
	Remote   string
	Message  string
	Track    *webrtc.TrackRemote
	Chat     *rtcmsg.ChatPayload
	Reaction *rtcmsg.ReactionPayload
}
