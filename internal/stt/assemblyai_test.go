package stt

import "testing"

func TestContinuationLikely(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"the patient needs an MRI and", true},
		{"let me transfer you to", true},
		{"the authorization is approved.", false},
		{"", false},
		{"um", true},
	}
	for _, tc := range cases {
		if got := continuationLikely(tc.text); got != tc.want {
			t.Fatalf("continuationLikely(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestCommitTail_DeltaSinceLastCommit(t *testing.T) {
	r := NewRecognizer("key")

	r.rolling = "hello there"
	if got := r.commitTailLocked(); got != "hello there" {
		t.Fatalf("first commit: %q", got)
	}

	r.rolling = "hello there how are you"
	if got := r.commitTailLocked(); got != "how are you" {
		t.Fatalf("second commit: %q", got)
	}

	// No new text since the last commit yields nothing.
	if got := r.commitTailLocked(); got != "" {
		t.Fatalf("empty commit: %q", got)
	}
}

func TestClose_LateRecognizerMessageDoesNotPanic(t *testing.T) {
	r := NewRecognizer("key")
	r.connected = true // no socket; Close tolerates a nil conn

	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// A message already in flight when Close ran must be absorbed, not
	// panic on a closed channel.
	r.handleMessage([]byte(`{"type":"Turn","transcript":"one moment please"}`))
	r.handleMessage([]byte(`{"type":"Termination"}`))

	select {
	case got := <-r.Partials():
		if got != "one moment please" {
			t.Fatalf("partial: %q", got)
		}
	default:
		t.Fatalf("late partial was not buffered")
	}
}

func TestVoiceEnergy_SilenceDoesNotCount(t *testing.T) {
	r := NewRecognizer("key")
	base := r.lastVoiceAt

	silence := make([]byte, 640)
	r.observeVoiceEnergy(silence)
	if r.lastVoiceAt.After(base) {
		t.Fatalf("silence advanced the voice clock")
	}

	loud := make([]byte, 640)
	for i := 0; i+1 < len(loud); i += 2 {
		loud[i] = 0xE8
		loud[i+1] = 0x03 // amplitude 1000
	}
	r.observeVoiceEnergy(loud)
	if !r.lastVoiceAt.After(base) {
		t.Fatalf("speech energy did not advance the voice clock")
	}
}
