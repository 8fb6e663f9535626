package media

import (
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

const (
	audioFrameInterval = 20 * time.Millisecond
	videoFrameInterval = 100 * time.Millisecond // 10 fps is plenty for a placeholder

	// 20ms of Opus silence.
	opusSilenceLen = 3

	syntheticStreamID = "lets-talk"
)

// SyntheticCapturer produces silence and a tiny test pattern instead of real
// device frames. It keeps a headless client fully negotiable end-to-end:
// tracks exist, RTP flows, mute flags work. Real device capture is a
// Capturer implementation supplied by the embedding application.
type SyntheticCapturer struct{}

func NewSyntheticCapturer() *SyntheticCapturer {
	return &SyntheticCapturer{}
}

func (sc *SyntheticCapturer) CaptureUserMedia(video, audio bool) (*Stream, error) {
	var audioTrack, videoTrack *webrtc.TrackLocalStaticSample
	var err error

	if audio {
		audioTrack, err = webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			"audio", syntheticStreamID,
		)
		if err != nil {
			return nil, NewCaptureError(KindDeviceNotFound, "microphone", err)
		}
	}

	if video {
		videoTrack, err = webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
			"video", syntheticStreamID,
		)
		if err != nil {
			return nil, NewCaptureError(KindDeviceNotFound, "camera", err)
		}
	}

	stream := NewStream(audioTrack, videoTrack)
	startPumps(stream)
	return stream, nil
}

func (sc *SyntheticCapturer) CaptureDisplay() (*Stream, error) {
	videoTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"screen", syntheticStreamID,
	)
	if err != nil {
		return nil, NewCaptureError(KindDeviceNotFound, "display", err)
	}

	// Screen capture carries no audio here; the session keeps the existing
	// microphone track untouched.
	stream := NewStream(nil, videoTrack)
	startPumps(stream)
	return stream, nil
}

func startPumps(s *Stream) {
	if s.Audio != nil {
		go pumpAudio(s)
	}
	if s.Video != nil {
		go pumpVideo(s)
	}
}

func pumpAudio(s *Stream) {
	ticker := time.NewTicker(audioFrameInterval)
	defer ticker.Stop()

	silence := make([]byte, opusSilenceLen)
	silence[0] = 0xf8 // Opus TOC for a silent CELT frame

	for {
		select {
		case <-s.Ended():
			return
		case <-ticker.C:
			if !s.AudioEnabled() {
				continue
			}
			s.Audio.WriteSample(media.Sample{Data: silence, Duration: audioFrameInterval})
		}
	}
}

func pumpVideo(s *Stream) {
	ticker := time.NewTicker(videoFrameInterval)
	defer ticker.Stop()

	frame := make([]byte, 64)

	for {
		select {
		case <-s.Ended():
			return
		case <-ticker.C:
			if !s.VideoEnabled() {
				continue
			}
			s.Video.WriteSample(media.Sample{Data: frame, Duration: videoFrameInterval})
		}
	}
}
