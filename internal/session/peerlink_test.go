package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/luismarketmedia/lets-talk-sub000/internal/media"
	"github.com/luismarketmedia/lets-talk-sub000/internal/protocol"
)

type fakeSignaler struct {
	mu   sync.Mutex
	msgs []*protocol.Message
}

func (f *fakeSignaler) Send(msg *protocol.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeSignaler) byType(t protocol.Type) []*protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*protocol.Message
	for _, m := range f.msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func newTestStream(t *testing.T) *media.Stream {
	t.Helper()
	stream, err := media.NewSyntheticCapturer().CaptureUserMedia(true, true)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	t.Cleanup(stream.Close)
	return stream
}

func newTestLink(t *testing.T, remoteID string) *PeerLink {
	t.Helper()
	link, err := newPeerLink(remoteID, webrtc.Configuration{}, newTestStream(t), &fakeSignaler{}, nil)
	if err != nil {
		t.Fatalf("newPeerLink: %v", err)
	}
	t.Cleanup(link.Close)
	return link
}

const hostCandidate = "candidate:1 1 udp 2122252543 127.0.0.1 50000 typ host"

func TestCandidatesBufferedUntilRemoteDescription(t *testing.T) {
	offerer := newTestLink(t, "answerer")
	answerer := newTestLink(t, "offerer")

	offer, err := offerer.Offer()
	if err != nil {
		t.Fatalf("Offer: %v", err)
	}

	// Candidates race the offer; the link must hold them, not drop them.
	if err := answerer.AddCandidate(webrtc.ICECandidateInit{Candidate: hostCandidate}); err != nil {
		t.Fatalf("AddCandidate before offer: %v", err)
	}
	if got := answerer.PendingCandidates(); got != 1 {
		t.Fatalf("pending candidates = %d, want 1", got)
	}

	if _, err := answerer.Answer(*offer); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got := answerer.PendingCandidates(); got != 0 {
		t.Errorf("pending candidates after answer = %d, want 0", got)
	}

	// With the remote description set, candidates apply directly.
	if err := answerer.AddCandidate(webrtc.ICECandidateInit{Candidate: hostCandidate}); err != nil {
		t.Fatalf("AddCandidate after answer: %v", err)
	}
	if got := answerer.PendingCandidates(); got != 0 {
		t.Errorf("candidate buffered after remote description: %d pending", got)
	}
}

func TestOfferOnlyFromFreshLink(t *testing.T) {
	link := newTestLink(t, "bob")

	if _, err := link.Offer(); err != nil {
		t.Fatalf("first Offer: %v", err)
	}
	if _, err := link.Offer(); err == nil {
		t.Error("second Offer succeeded")
	}
}

func TestAcceptAnswerRequiresOffering(t *testing.T) {
	link := newTestLink(t, "bob")

	err := link.AcceptAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0"})
	if !errors.Is(err, ErrUnexpectedAnswer) {
		t.Errorf("AcceptAnswer on fresh link = %v, want ErrUnexpectedAnswer", err)
	}
}

func TestOfferAnswerAccept(t *testing.T) {
	offerer := newTestLink(t, "b")
	answerer := newTestLink(t, "a")

	offer, err := offerer.Offer()
	if err != nil {
		t.Fatalf("Offer: %v", err)
	}
	if offerer.State() != LinkOffering {
		t.Errorf("offerer state = %s, want offering", offerer.State())
	}

	answer, err := answerer.Answer(*offer)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answerer.State() != LinkAnswering {
		t.Errorf("answerer state = %s, want answering", answerer.State())
	}

	if err := offerer.AcceptAnswer(*answer); err != nil {
		t.Fatalf("AcceptAnswer: %v", err)
	}
}

func TestReplaceVideoRequiresSender(t *testing.T) {
	stream, err := media.NewSyntheticCapturer().CaptureUserMedia(false, true)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	t.Cleanup(stream.Close)

	link, err := newPeerLink("bob", webrtc.Configuration{}, stream, &fakeSignaler{}, nil)
	if err != nil {
		t.Fatalf("newPeerLink: %v", err)
	}
	t.Cleanup(link.Close)

	screen, err := media.NewSyntheticCapturer().CaptureDisplay()
	if err != nil {
		t.Fatalf("capture display: %v", err)
	}
	t.Cleanup(screen.Close)

	if err := link.ReplaceVideo(screen.Video); !errors.Is(err, ErrNoVideoSender) {
		t.Errorf("ReplaceVideo without a video sender = %v, want ErrNoVideoSender", err)
	}
}

func TestCloseIsTerminal(t *testing.T) {
	link := newTestLink(t, "bob")

	link.Close()
	link.Close()

	if got := link.State(); got != LinkClosed {
		t.Fatalf("state after Close = %s, want closed", got)
	}
	if err := link.AddCandidate(webrtc.ICECandidateInit{Candidate: hostCandidate}); !errors.Is(err, ErrLinkClosed) {
		t.Errorf("AddCandidate after Close = %v, want ErrLinkClosed", err)
	}
	if _, err := link.Offer(); err == nil {
		t.Error("Offer after Close succeeded")
	}
}
