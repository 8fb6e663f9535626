package session

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/luismarketmedia/lets-talk-sub000/internal/media"
	"github.com/luismarketmedia/lets-talk-sub000/internal/protocol"
)

// LinkState tracks a PeerLink through its lifecycle. Operations are guarded
// by state, so negotiation steps racing with toggles or teardown are
// serialized by the link rather than by call ordering.
type LinkState int

const (
	LinkNew LinkState = iota
	LinkOffering
	LinkAnswering
	LinkConnected
	LinkClosed
)

func (s LinkState) String() string {
	switch s {
	case LinkNew:
		return "new"
	case LinkOffering:
		return "offering"
	case LinkAnswering:
		return "answering"
	case LinkConnected:
		return "connected"
	case LinkClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PeerLink is the negotiated session state between the local participant and
// exactly one remote. It owns the underlying peer connection; tracks are
// references into the coordinator's streams, never owned here. At most one
// PeerLink exists per remote id, enforced by the coordinator's link table.
type PeerLink struct {
	remoteID string
	pc       *webrtc.PeerConnection

	mu        sync.Mutex
	state     LinkState
	remoteSet bool

	// pending buffers trickle-ICE candidates that arrive before the remote
	// description. They are flushed in arrival order, never dropped.
	pending []webrtc.ICECandidateInit

	audioSender *webrtc.RTPSender
	videoSender *webrtc.RTPSender

	dataChannel *webrtc.DataChannel
}

// newPeerLink builds the peer connection, attaches the local track
// references and wires trickle ICE back through the signaler. onConnected,
// when non-nil, fires once the connection is established.
func newPeerLink(remoteID string, cfg webrtc.Configuration, local *media.Stream, signaler Signaler, onConnected func()) (*PeerLink, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, NewPeerError("create peer connection", remoteID, err)
	}

	link := &PeerLink{
		remoteID: remoteID,
		pc:       pc,
		state:    LinkNew,
	}

	if local != nil && local.Audio != nil {
		sender, err := pc.AddTrack(local.Audio)
		if err != nil {
			pc.Close()
			return nil, NewPeerError("add audio track", remoteID, err)
		}
		link.audioSender = sender
	}
	if local != nil && local.Video != nil {
		sender, err := pc.AddTrack(local.Video)
		if err != nil {
			pc.Close()
			return nil, NewPeerError("add video track", remoteID, err)
		}
		link.videoSender = sender
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			slog.Warn("marshal ICE candidate failed", "peer", remoteID, "err", err)
			return
		}
		signaler.Send(protocol.MustNew(protocol.TypeICECandidate, protocol.SignalPayload{
			Target:    remoteID,
			Candidate: raw,
		}))
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		slog.Debug("peer connection state", "peer", remoteID, "state", state)
		switch state {
		case webrtc.PeerConnectionStateConnected:
			link.setState(LinkConnected)
			if onConnected != nil {
				onConnected()
			}
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			link.setState(LinkClosed)
		}
	})

	return link, nil
}

func (l *PeerLink) RemoteID() string {
	return l.remoteID
}

func (l *PeerLink) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *PeerLink) setState(s LinkState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == LinkClosed {
		return
	}
	l.state = s
}

// Offer creates and applies the local offer. Only valid on a fresh link.
func (l *PeerLink) Offer() (*webrtc.SessionDescription, error) {
	l.mu.Lock()
	if l.state != LinkNew {
		state := l.state
		l.mu.Unlock()
		return nil, &SessionError{Op: "create offer", Remote: l.remoteID, Err: ErrLinkClosed, Details: state.String()}
	}
	l.state = LinkOffering
	l.mu.Unlock()

	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return nil, NewPeerError("create offer", l.remoteID, err)
	}
	if err = l.pc.SetLocalDescription(offer); err != nil {
		return nil, NewPeerError("set local description", l.remoteID, err)
	}

	return l.pc.LocalDescription(), nil
}

// Answer applies the remote offer and produces the local answer, flushing
// any candidates that arrived ahead of the offer.
func (l *PeerLink) Answer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	l.mu.Lock()
	if l.state != LinkNew {
		state := l.state
		l.mu.Unlock()
		return nil, &SessionError{Op: "handle offer", Remote: l.remoteID, Err: ErrLinkClosed, Details: state.String()}
	}
	l.state = LinkAnswering
	l.mu.Unlock()

	if err := l.pc.SetRemoteDescription(offer); err != nil {
		return nil, NewPeerError("set remote description", l.remoteID, err)
	}
	l.flushCandidates()

	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return nil, NewPeerError("create answer", l.remoteID, err)
	}
	if err = l.pc.SetLocalDescription(answer); err != nil {
		return nil, NewPeerError("set local description", l.remoteID, err)
	}

	return l.pc.LocalDescription(), nil
}

// AcceptAnswer applies the remote answer to the outbound negotiation.
func (l *PeerLink) AcceptAnswer(answer webrtc.SessionDescription) error {
	l.mu.Lock()
	if l.state != LinkOffering {
		state := l.state
		l.mu.Unlock()
		return &SessionError{Op: "handle answer", Remote: l.remoteID, Err: ErrUnexpectedAnswer, Details: state.String()}
	}
	l.mu.Unlock()

	if err := l.pc.SetRemoteDescription(answer); err != nil {
		return NewPeerError("set remote description", l.remoteID, err)
	}
	l.flushCandidates()
	return nil
}

// AddCandidate applies a trickle-ICE candidate, buffering it if the remote
// description has not been set yet.
func (l *PeerLink) AddCandidate(candidate webrtc.ICECandidateInit) error {
	l.mu.Lock()
	if l.state == LinkClosed {
		l.mu.Unlock()
		return NewPeerError("add ICE candidate", l.remoteID, ErrLinkClosed)
	}
	if !l.remoteSet {
		l.pending = append(l.pending, candidate)
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	if err := l.pc.AddICECandidate(candidate); err != nil {
		return NewPeerError("add ICE candidate", l.remoteID, err)
	}
	return nil
}

// PendingCandidates reports how many candidates are buffered.
func (l *PeerLink) PendingCandidates() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// flushCandidates marks the remote description set and applies buffered
// candidates in arrival order.
func (l *PeerLink) flushCandidates() {
	l.mu.Lock()
	l.remoteSet = true
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, candidate := range pending {
		if err := l.pc.AddICECandidate(candidate); err != nil {
			slog.Warn("buffered ICE candidate rejected", "peer", l.remoteID, "err", err)
		}
	}
}

// ReplaceVideo substitutes the outbound video track in place, without
// renegotiation. The audio sender is never touched.
func (l *PeerLink) ReplaceVideo(track webrtc.TrackLocal) error {
	if l.videoSender == nil {
		return NewPeerError("replace video track", l.remoteID, ErrNoVideoSender)
	}
	if err := l.videoSender.ReplaceTrack(track); err != nil {
		return NewPeerError("replace video track", l.remoteID, err)
	}
	return nil
}

// OutboundVideo returns the track currently attached to the video sender.
func (l *PeerLink) OutboundVideo() webrtc.TrackLocal {
	if l.videoSender == nil {
		return nil
	}
	return l.videoSender.Track()
}

// OutboundAudio returns the track currently attached to the audio sender.
func (l *PeerLink) OutboundAudio() webrtc.TrackLocal {
	if l.audioSender == nil {
		return nil
	}
	return l.audioSender.Track()
}

// openEventsChannel creates the in-call widget channel. The offer initiator
// calls this before building its offer so the channel is negotiated along
// with the media.
func (l *PeerLink) openEventsChannel(onMessage func(remoteID string, data []byte)) error {
	dc, err := l.pc.CreateDataChannel(eventsChannelLabel, nil)
	if err != nil {
		return NewPeerError("create data channel", l.remoteID, err)
	}
	dc.OnMessage(func(m webrtc.DataChannelMessage) {
		onMessage(l.remoteID, m.Data)
	})

	l.mu.Lock()
	l.dataChannel = dc
	l.mu.Unlock()
	return nil
}

// adoptEventsChannel accepts the channel the offerer created.
func (l *PeerLink) adoptEventsChannel(onMessage func(remoteID string, data []byte)) {
	l.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		dc.OnMessage(func(m webrtc.DataChannelMessage) {
			onMessage(l.remoteID, m.Data)
		})

		l.mu.Lock()
		l.dataChannel = dc
		l.mu.Unlock()
	})
}

// sendEvent ships an encoded widget frame to this remote.
func (l *PeerLink) sendEvent(data []byte) error {
	l.mu.Lock()
	dc := l.dataChannel
	l.mu.Unlock()

	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return NewPeerError("send event", l.remoteID, ErrChannelNotOpen)
	}
	if err := dc.Send(data); err != nil {
		return NewPeerError("send event", l.remoteID, err)
	}
	return nil
}

// Close tears the link down and releases the peer connection.
func (l *PeerLink) Close() {
	l.mu.Lock()
	if l.state == LinkClosed {
		l.mu.Unlock()
		return
	}
	l.state = LinkClosed
	l.mu.Unlock()

	if err := l.pc.Close(); err != nil {
		slog.Warn("close peer connection failed", "peer", l.remoteID, "err", err)
	}
}
