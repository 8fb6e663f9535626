package media

import (
	"errors"
	"fmt"
	"testing"
)

func TestStreamFlags(t *testing.T) {
	capturer := NewSyntheticCapturer()
	stream, err := capturer.CaptureUserMedia(true, true)
	if err != nil {
		t.Fatalf("CaptureUserMedia: %v", err)
	}
	defer stream.Close()

	if !stream.AudioEnabled() || !stream.VideoEnabled() {
		t.Fatal("fresh stream does not start with both flags on")
	}

	stream.EnableAudio(false)
	if stream.AudioEnabled() {
		t.Error("audio still enabled after EnableAudio(false)")
	}
	if !stream.VideoEnabled() {
		t.Error("muting audio touched the video flag")
	}

	stream.EnableAudio(true)
	if !stream.AudioEnabled() {
		t.Error("audio not re-enabled")
	}
}

func TestAudioOnlyStream(t *testing.T) {
	capturer := NewSyntheticCapturer()
	stream, err := capturer.CaptureUserMedia(false, true)
	if err != nil {
		t.Fatalf("CaptureUserMedia: %v", err)
	}
	defer stream.Close()

	if stream.Video != nil {
		t.Error("audio-only capture produced a video track")
	}
	if stream.VideoEnabled() {
		t.Error("VideoEnabled true without a video track")
	}
	if !stream.AudioEnabled() {
		t.Error("AudioEnabled false on audio-only stream")
	}
}

func TestDisplayStreamIsVideoOnly(t *testing.T) {
	capturer := NewSyntheticCapturer()
	stream, err := capturer.CaptureDisplay()
	if err != nil {
		t.Fatalf("CaptureDisplay: %v", err)
	}
	defer stream.Close()

	if stream.Audio != nil {
		t.Error("display capture produced an audio track")
	}
	if stream.Video == nil {
		t.Fatal("display capture produced no video track")
	}
	if stream.Video.ID() != "screen" {
		t.Errorf("display track id = %q, want %q", stream.Video.ID(), "screen")
	}
}

func TestStreamCloseIdempotentAndSignalsEnded(t *testing.T) {
	stream := NewStream(nil, nil)

	select {
	case <-stream.Ended():
		t.Fatal("Ended fired before Close")
	default:
	}

	stream.Close()
	stream.Close()

	select {
	case <-stream.Ended():
	default:
		t.Fatal("Ended not closed after Close")
	}
}

func TestCaptureErrorMessages(t *testing.T) {
	kinds := []FailureKind{
		KindPermissionDenied,
		KindDeviceNotFound,
		KindDeviceBusy,
		KindOverconstrained,
		KindInsecureContext,
	}

	seen := make(map[string]FailureKind)
	for _, kind := range kinds {
		e := NewCaptureError(kind, "camera", nil)
		msg := e.UserMessage()
		if msg == "" {
			t.Errorf("%s: empty user message", kind)
		}
		if prev, dup := seen[msg]; dup {
			t.Errorf("%s and %s share the user message %q", kind, prev, msg)
		}
		seen[msg] = kind
	}
}

func TestAsCaptureError(t *testing.T) {
	inner := NewCaptureError(KindDeviceBusy, "microphone", errors.New("EBUSY"))
	wrapped := fmt.Errorf("acquire media: %w", inner)

	cerr, ok := AsCaptureError(wrapped)
	if !ok {
		t.Fatal("AsCaptureError did not find the wrapped error")
	}
	if cerr.Kind != KindDeviceBusy || cerr.Device != "microphone" {
		t.Errorf("unwrapped = %+v, want device-busy/microphone", cerr)
	}

	if _, ok := AsCaptureError(errors.New("plain")); ok {
		t.Error("AsCaptureError matched a plain error")
	}
}
