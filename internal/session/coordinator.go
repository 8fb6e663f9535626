// Package session implements the per-participant side of a call: local
// capture, one PeerLink per other room member, the offer/answer/trickle-ICE
// handshake through the signaling hub, and in-place track mutation for
// mute, camera and screen-share toggles.
package session

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/luismarketmedia/lets-talk-sub000/internal/media"
	"github.com/luismarketmedia/lets-talk-sub000/internal/protocol"
	"github.com/luismarketmedia/lets-talk-sub000/internal/rtcmsg"
	"github.com/luismarketmedia/lets-talk-sub000/internal/sigclient"
)

const eventsChannelLabel = "events"

// Signaler sends messages toward the hub. *sigclient.Client satisfies it;
// tests use an in-memory implementation.
type Signaler interface {
	Send(msg *protocol.Message)
}

// Phase is the coordinator's room-membership state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWaitingApproval
	PhaseInCall
)

// Coordinator owns one participant's session. The local stream is owned
// exclusively here; peer links hold track references only. All mutation is
// serialized by a single mutex, the process-level equivalent of the
// browser's single event loop.
type Coordinator struct {
	signaler  Signaler
	capturer  media.Capturer
	rtcConfig webrtc.Configuration

	mu            sync.Mutex
	selfID        string
	roomID        string
	displayName   string
	phase         Phase
	local         *media.Stream
	screen        *media.Stream
	screenSharing bool
	links         map[string]*PeerLink

	// early buffers trickle-ICE candidates that outran the offer that would
	// create their link. Drained into the link on creation; entries for ids
	// that never join are dropped on reset.
	early map[string][]webrtc.ICECandidateInit

	events chan Event
}

// NewCoordinator wires a coordinator to its signaler and capture source.
func NewCoordinator(signaler Signaler, capturer media.Capturer, rtcConfig webrtc.Configuration) *Coordinator {
	return &Coordinator{
		signaler:  signaler,
		capturer:  capturer,
		rtcConfig: rtcConfig,
		links:     make(map[string]*PeerLink),
		early:     make(map[string][]webrtc.ICECandidateInit),
		events:    make(chan Event, 32),
	}
}

// Events returns the coordinator's notification stream.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// SetSelfID records the hub-assigned connection id from the welcome message.
func (c *Coordinator) SetSelfID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selfID = id
}

func (c *Coordinator) SelfID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfID
}

func (c *Coordinator) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// LinkCount reports the number of active peer links.
func (c *Coordinator) LinkCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.links)
}

// AudioEnabled reports the outbound audio flag.
func (c *Coordinator) AudioEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local != nil && c.local.AudioEnabled()
}

// VideoEnabled reports the outbound video flag.
func (c *Coordinator) VideoEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local != nil && c.local.VideoEnabled()
}

// ScreenSharing reports whether a screen share is active.
func (c *Coordinator) ScreenSharing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screenSharing
}

// JoinRoom acquires local media and enters the room directly (host path).
func (c *Coordinator) JoinRoom(roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseWaitingApproval {
		return NewError("join room", ErrApprovalPending)
	}
	if c.phase != PhaseIdle {
		return NewError("join room", ErrAlreadyInCall)
	}

	stream, err := c.acquireUserMedia()
	if err != nil {
		return err
	}

	c.local = stream
	c.roomID = roomID
	c.phase = PhaseInCall

	c.signaler.Send(protocol.MustNew(protocol.TypeJoinRoom, protocol.JoinRoomPayload{RoomID: roomID}))
	return nil
}

// RequestJoinRoom acquires local media and asks the room's host for entry.
// The session stays in the waiting phase until join-approved, join-rejected
// or join-error arrives.
func (c *Coordinator) RequestJoinRoom(roomID, displayName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseWaitingApproval {
		return NewError("request join", ErrApprovalPending)
	}
	if c.phase != PhaseIdle {
		return NewError("request join", ErrAlreadyInCall)
	}

	stream, err := c.acquireUserMedia()
	if err != nil {
		return err
	}

	c.local = stream
	c.roomID = roomID
	c.displayName = displayName
	c.phase = PhaseWaitingApproval

	c.signaler.Send(protocol.MustNew(protocol.TypeRequestJoinRoom, protocol.RequestJoinPayload{
		RoomID:   roomID,
		UserName: displayName,
	}))
	return nil
}

// acquireUserMedia walks the capture fallback ladder: camera+mic, then
// audio-only, then a typed hard failure. Device errors are never retried
// automatically. Callers hold c.mu.
func (c *Coordinator) acquireUserMedia() (*media.Stream, error) {
	stream, err := c.capturer.CaptureUserMedia(true, true)
	if err == nil {
		return stream, nil
	}
	slog.Warn("camera+mic capture failed, trying audio-only", "err", err)

	stream, audioErr := c.capturer.CaptureUserMedia(false, true)
	if audioErr == nil {
		return stream, nil
	}

	if _, ok := media.AsCaptureError(audioErr); ok {
		return nil, audioErr
	}
	return nil, err
}

// HandleJoinApproved transitions a waiting session into the call.
func (c *Coordinator) HandleJoinApproved(roomID string) {
	c.mu.Lock()
	if c.phase != PhaseWaitingApproval || c.roomID != roomID {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseInCall
	c.mu.Unlock()

	c.emit(Event{Kind: EventJoinApproved, Message: roomID})
}

// HandleJoinRejected releases the captured media and resets the session.
func (c *Coordinator) HandleJoinRejected(roomID string) {
	c.mu.Lock()
	if c.phase != PhaseWaitingApproval || c.roomID != roomID {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	c.mu.Unlock()

	c.emit(Event{Kind: EventJoinRejected, Message: roomID})
}

// HandleJoinError surfaces a room-protocol error. A waiting session is
// reset; an established call is left untouched.
func (c *Coordinator) HandleJoinError(message string) {
	c.mu.Lock()
	if c.phase == PhaseWaitingApproval {
		c.resetLocked()
	}
	c.mu.Unlock()

	c.emit(Event{Kind: EventJoinError, Message: message})
}

// HandlePeerJoined makes this side the offer initiator for the new member.
// The hub only notifies existing members, so exactly one side of each pair
// ever initiates; link creation stays idempotent regardless.
func (c *Coordinator) HandlePeerJoined(remoteID string) {
	c.mu.Lock()
	if c.phase != PhaseInCall {
		c.mu.Unlock()
		return
	}
	if _, ok := c.links[remoteID]; ok {
		c.mu.Unlock()
		return
	}

	link, err := c.createLinkLocked(remoteID)
	if err != nil {
		c.mu.Unlock()
		slog.Error("peer link setup failed", "peer", remoteID, "err", err)
		return
	}

	if err := link.openEventsChannel(c.handleChannelMessage); err != nil {
		slog.Warn("events channel unavailable", "peer", remoteID, "err", err)
	}
	c.mu.Unlock()

	offer, err := link.Offer()
	if err != nil {
		// The link stays unestablished; the session continues and no retry
		// is scheduled.
		slog.Error("offer failed", "peer", remoteID, "err", err)
		return
	}

	c.sendDescription(protocol.TypeOffer, remoteID, offer)
}

// HandleOffer answers a remote offer, creating the link if this side has
// not seen the pair yet.
func (c *Coordinator) HandleOffer(remoteID string, rawOffer json.RawMessage) {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(rawOffer, &offer); err != nil {
		slog.Error("malformed offer", "peer", remoteID, "err", err)
		return
	}

	c.mu.Lock()
	if c.phase != PhaseInCall {
		c.mu.Unlock()
		return
	}
	link, ok := c.links[remoteID]
	if !ok {
		var err error
		link, err = c.createLinkLocked(remoteID)
		if err != nil {
			c.mu.Unlock()
			slog.Error("peer link setup failed", "peer", remoteID, "err", err)
			return
		}
	}
	link.adoptEventsChannel(c.handleChannelMessage)
	c.mu.Unlock()

	answer, err := link.Answer(offer)
	if err != nil {
		slog.Error("answer failed", "peer", remoteID, "err", err)
		return
	}

	c.sendDescription(protocol.TypeAnswer, remoteID, answer)
}

// HandleAnswer applies a remote answer to the outbound negotiation.
func (c *Coordinator) HandleAnswer(remoteID string, rawAnswer json.RawMessage) {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(rawAnswer, &answer); err != nil {
		slog.Error("malformed answer", "peer", remoteID, "err", err)
		return
	}

	c.mu.Lock()
	link, ok := c.links[remoteID]
	c.mu.Unlock()
	if !ok {
		slog.Warn("answer for unknown peer dropped", "peer", remoteID)
		return
	}

	if err := link.AcceptAnswer(answer); err != nil {
		slog.Error("apply answer failed", "peer", remoteID, "err", err)
	}
}

// HandleCandidate feeds a trickle-ICE candidate to the matching link. A
// candidate may legitimately arrive before this side has processed the
// offer, so candidates for unknown remotes are held in the early buffer
// rather than dropped. Only peer-joined and offer ever create links, which
// keeps a stray candidate from a non-member from minting a dead connection.
func (c *Coordinator) HandleCandidate(remoteID string, rawCandidate json.RawMessage) {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(rawCandidate, &candidate); err != nil {
		slog.Error("malformed ICE candidate", "peer", remoteID, "err", err)
		return
	}

	c.mu.Lock()
	if c.phase != PhaseInCall {
		c.mu.Unlock()
		return
	}
	link, ok := c.links[remoteID]
	if !ok {
		c.early[remoteID] = append(c.early[remoteID], candidate)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := link.AddCandidate(candidate); err != nil {
		slog.Warn("ICE candidate rejected", "peer", remoteID, "err", err)
	}
}

// HandlePeerLeft destroys the pair's link and releases its resources.
func (c *Coordinator) HandlePeerLeft(remoteID string) {
	c.mu.Lock()
	link, ok := c.links[remoteID]
	if ok {
		delete(c.links, remoteID)
	}
	delete(c.early, remoteID)
	c.mu.Unlock()

	if !ok {
		return
	}
	link.Close()
	c.emit(Event{Kind: EventPeerLeft, Remote: remoteID})
}

// createLinkLocked builds a PeerLink for remoteID and registers it in the
// link table. Callers hold c.mu.
func (c *Coordinator) createLinkLocked(remoteID string) (*PeerLink, error) {
	link, err := newPeerLink(remoteID, c.rtcConfig, c.local, c.signaler, func() {
		c.emit(Event{Kind: EventPeerConnected, Remote: remoteID})
	})
	if err != nil {
		return nil, err
	}

	link.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.emit(Event{Kind: EventRemoteTrack, Remote: remoteID, Track: track})
	})

	c.links[remoteID] = link

	// Candidates that arrived ahead of this link move into its own buffer,
	// preserving arrival order.
	for _, candidate := range c.early[remoteID] {
		if err := link.AddCandidate(candidate); err != nil {
			slog.Warn("early ICE candidate rejected", "peer", remoteID, "err", err)
		}
	}
	delete(c.early, remoteID)

	return link, nil
}

func (c *Coordinator) sendDescription(t protocol.Type, remoteID string, desc *webrtc.SessionDescription) {
	raw, err := json.Marshal(desc)
	if err != nil {
		slog.Error("marshal session description failed", "peer", remoteID, "err", err)
		return
	}

	payload := protocol.SignalPayload{Target: remoteID}
	switch t {
	case protocol.TypeOffer:
		payload.Offer = raw
	case protocol.TypeAnswer:
		payload.Answer = raw
	}
	c.signaler.Send(protocol.MustNew(t, payload))
}

// ToggleAudio flips the outbound audio flag in place. No renegotiation.
func (c *Coordinator) ToggleAudio() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInCall || c.local == nil {
		return false, NewError("toggle audio", ErrNotInCall)
	}

	enabled := !c.local.AudioEnabled()
	c.local.EnableAudio(enabled)
	c.announceStateLocked()
	return enabled, nil
}

// ToggleVideo flips the outbound video flag in place. No renegotiation.
func (c *Coordinator) ToggleVideo() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInCall || c.local == nil {
		return false, NewError("toggle video", ErrNotInCall)
	}

	enabled := !c.local.VideoEnabled()
	c.local.EnableVideo(enabled)
	c.announceStateLocked()
	return enabled, nil
}

// announceStateLocked broadcasts the current media flags to the room.
// Callers hold c.mu.
func (c *Coordinator) announceStateLocked() {
	c.signaler.Send(protocol.MustNew(protocol.TypeStateChange, protocol.StateChangePayload{
		RoomID:         c.roomID,
		IsAudioEnabled: c.local.AudioEnabled(),
		IsVideoEnabled: c.local.VideoEnabled(),
	}))
}

// ToggleScreenShare starts or stops screen sharing. On start, the display's
// video track replaces the outbound camera track on every active link, in
// place; the microphone track is never touched. When the capture source ends
// on its own, every link reverts to the camera automatically.
func (c *Coordinator) ToggleScreenShare() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInCall {
		return false, NewError("toggle screen share", ErrNotInCall)
	}

	if c.screenSharing {
		c.stopScreenShareLocked()
		return false, nil
	}

	// An audio-only session has no video sender on any link and nothing to
	// substitute back afterwards.
	if c.local == nil || c.local.Video == nil {
		return false, NewError("toggle screen share", ErrNoVideoSender)
	}

	screen, err := c.capturer.CaptureDisplay()
	if err != nil {
		return false, err
	}

	for _, link := range c.links {
		if err := link.ReplaceVideo(screen.Video); err != nil {
			slog.Warn("screen track substitution failed", "peer", link.RemoteID(), "err", err)
		}
	}

	c.screen = screen
	c.screenSharing = true

	// Source-initiated end of sharing reverts every link to the camera.
	go c.watchScreenEnd(screen)

	return true, nil
}

func (c *Coordinator) watchScreenEnd(screen *media.Stream) {
	<-screen.Ended()

	c.mu.Lock()
	if !c.screenSharing || c.screen != screen {
		c.mu.Unlock()
		return
	}
	c.stopScreenShareLocked()
	c.mu.Unlock()
}

// stopScreenShareLocked reverts every link's outbound video to the camera
// track and releases the display capture. Callers hold c.mu.
func (c *Coordinator) stopScreenShareLocked() {
	if c.local != nil && c.local.Video != nil {
		for _, link := range c.links {
			if err := link.ReplaceVideo(c.local.Video); err != nil {
				slog.Warn("camera track restore failed", "peer", link.RemoteID(), "err", err)
			}
		}
	}

	if c.screen != nil {
		c.screen.Close()
		c.screen = nil
	}
	c.screenSharing = false

	c.emit(Event{Kind: EventScreenShareEnded})
}

// SendChat ships a chat message to every connected peer over the data
// channels.
func (c *Coordinator) SendChat(text string) error {
	msg, err := rtcmsg.NewMessage(rtcmsg.TypeChat, rtcmsg.ChatPayload{
		From:   c.SelfID(),
		Text:   text,
		SentAt: time.Now(),
	})
	if err != nil {
		return NewError("send chat", err)
	}
	return c.broadcastEvent(msg)
}

// SendReaction ships an emoji reaction to every connected peer.
func (c *Coordinator) SendReaction(emoji string) error {
	msg, err := rtcmsg.NewMessage(rtcmsg.TypeReaction, rtcmsg.ReactionPayload{
		From:  c.SelfID(),
		Emoji: emoji,
	})
	if err != nil {
		return NewError("send reaction", err)
	}
	return c.broadcastEvent(msg)
}

func (c *Coordinator) broadcastEvent(msg rtcmsg.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return NewError("encode event", err)
	}

	c.mu.Lock()
	links := make([]*PeerLink, 0, len(c.links))
	for _, link := range c.links {
		links = append(links, link)
	}
	c.mu.Unlock()

	for _, link := range links {
		if err := link.sendEvent(data); err != nil {
			slog.Debug("event not delivered", "peer", link.RemoteID(), "err", err)
		}
	}
	return nil
}

func (c *Coordinator) handleChannelMessage(remoteID string, data []byte) {
	msg, err := rtcmsg.DecodeMessage(data)
	if err != nil {
		slog.Warn("malformed data channel frame", "peer", remoteID, "err", err)
		return
	}

	switch msg.Type {
	case rtcmsg.TypeChat:
		var p rtcmsg.ChatPayload
		if err := msg.DecodePayload(&p); err != nil {
			return
		}
		c.emit(Event{Kind: EventChat, Remote: remoteID, Chat: &p})

	case rtcmsg.TypeReaction:
		var p rtcmsg.ReactionPayload
		if err := msg.DecodePayload(&p); err != nil {
			return
		}
		c.emit(Event{Kind: EventReaction, Remote: remoteID, Reaction: &p})

	default:
		slog.Debug("unknown data channel event", "peer", remoteID, "type", msg.Type)
	}
}

// EndCall stops all local media, closes every link and resets the session
// to its initial state.
func (c *Coordinator) EndCall() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// resetLocked releases all media and link state. Callers hold c.mu.
func (c *Coordinator) resetLocked() {
	for id, link := range c.links {
		link.Close()
		delete(c.links, id)
	}
	clear(c.early)

	if c.screen != nil {
		c.screen.Close()
		c.screen = nil
	}
	if c.local != nil {
		c.local.Close()
		c.local = nil
	}

	c.screenSharing = false
	c.roomID = ""
	c.displayName = ""
	c.phase = PhaseIdle
}

func (c *Coordinator) emit(e Event) {
	select {
	case c.events <- e:
	default:
		slog.Warn("event dropped, consumer too slow", "kind", e.Kind)
	}
}

// Run drives the coordinator from a handler's typed channels until done is
// closed or the connection drops. Approval-queue channels (JoinRequest,
// JoinRequestCancelled) and room widget channels are left to other
// consumers.
func (c *Coordinator) Run(h *sigclient.Handler, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return

		case id, ok := <-h.Welcome:
			if !ok {
				return
			}
			c.SetSelfID(id)

		case remoteID, ok := <-h.PeerJoined:
			if !ok {
				return
			}
			c.HandlePeerJoined(remoteID)

		case remoteID, ok := <-h.PeerLeft:
			if !ok {
				return
			}
			c.HandlePeerLeft(remoteID)

		case sig, ok := <-h.Offer:
			if !ok {
				return
			}
			c.HandleOffer(sig.Sender, sig.Offer)

		case sig, ok := <-h.Answer:
			if !ok {
				return
			}
			c.HandleAnswer(sig.Sender, sig.Answer)

		case sig, ok := <-h.Candidate:
			if !ok {
				return
			}
			c.HandleCandidate(sig.Sender, sig.Candidate)

		case roomID, ok := <-h.JoinApproved:
			if !ok {
				return
			}
			c.HandleJoinApproved(roomID)

		case roomID, ok := <-h.JoinRejected:
			if !ok {
				return
			}
			c.HandleJoinRejected(roomID)

		case message, ok := <-h.JoinError:
			if !ok {
				return
			}
			c.HandleJoinError(message)
		}
	}
}
