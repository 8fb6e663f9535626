// Package media owns local capture. A Stream bundles the outbound tracks a
// session feeds into its peer links; a Capturer produces streams from some
// device source. The session coordinator is the stream's exclusive owner:
// peer links only ever hold track references.
package media

import (
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
)

// Stream is a set of locally captured tracks plus their enabled flags.
// Audio or Video may be nil (audio-only capture, video-only screen share).
type Stream struct {
	Audio *webrtc.TrackLocalStaticSample
	Video *webrtc.TrackLocalStaticSample

	audioOn atomic.Bool
	videoOn atomic.Bool

	done      chan struct{}
	closeOnce sync.Once
}

// NewStream bundles tracks into a stream with both flags enabled.
func NewStream(audio, video *webrtc.TrackLocalStaticSample) *Stream {
	s := &Stream{
		Audio: audio,
		Video: video,
		done:  make(chan struct{}),
	}
	s.audioOn.Store(audio != nil)
	s.videoOn.Store(video != nil)
	return s
}

// EnableAudio flips the audio flag in place. No renegotiation happens; the
// sample source simply stops feeding frames while disabled.
func (s *Stream) EnableAudio(on bool) { s.audioOn.Store(on) }

func (s *Stream) AudioEnabled() bool { return s.Audio != nil && s.audioOn.Load() }

// EnableVideo flips the video flag in place, same contract as EnableAudio.
func (s *Stream) EnableVideo(on bool) { s.videoOn.Store(on) }

func (s *Stream) VideoEnabled() bool { return s.Video != nil && s.videoOn.Load() }

// Ended is closed when the capture source stops, e.g. the user ends a
// screen share from outside the app.
func (s *Stream) Ended() <-chan struct{} { return s.done }

// Close stops the capture source. Safe to call more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Capturer acquires local media. Implementations map their device errors to
// *CaptureError so callers can surface the right user message.
type Capturer interface {
	// CaptureUserMedia opens camera and/or microphone.
	CaptureUserMedia(video, audio bool) (*Stream, error)

	// CaptureDisplay opens a screen-share source. The returned stream may
	// be video-only; its Ended channel fires when sharing stops at the
	// source.
	CaptureDisplay() (*Stream, error)
}
