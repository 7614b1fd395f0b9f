package telephony

import (
	"encoding/base64"
	"sync"
	"testing"
	"time"
)

func TestMulaw_RoundTripApproximatesInput(t *testing.T) {
	for _, sample := range []int16{0, 100, -100, 1000, -1000, 8000, -8000, 30000, -30000} {
		got := DecodeMulaw(EncodeMulaw(sample))
		diff := int(got) - int(sample)
		if diff < 0 {
			diff = -diff
		}
		// mu-law is logarithmic: tolerance scales with amplitude.
		tol := int(sample)/16 + 16
		if tol < 0 {
			tol = -tol
		}
		if diff > tol {
			t.Fatalf("sample %d decoded to %d (diff %d > tol %d)", sample, got, diff, tol)
		}
	}
}

func TestMulaw_SilenceIsStable(t *testing.T) {
	if got := DecodeMulaw(EncodeMulaw(0)); got < -16 || got > 16 {
		t.Fatalf("silence decoded to %d", got)
	}
}

func TestDecodeMulawTo16k_DoublesRate(t *testing.T) {
	payload := make([]byte, 160) // one 20ms frame at 8kHz
	out := DecodeMulawTo16k(payload)
	if len(out) != 160*2*2 { // doubled sample count, 2 bytes each
		t.Fatalf("got %d bytes, want %d", len(out), 160*4)
	}
}

func TestDownsample48kTo8k_Averages(t *testing.T) {
	in := make([]int16, 12)
	for i := range in {
		in[i] = 600
	}
	out := Downsample48kTo8k(in)
	if len(out) != 2 {
		t.Fatalf("got %d samples, want 2", len(out))
	}
	for _, s := range out {
		if s != 600 {
			t.Fatalf("constant signal changed to %d", s)
		}
	}
}

type sinkRecorder struct {
	mu   sync.Mutex
	msgs []any
}

func (r *sinkRecorder) send(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, v)
	return nil
}

func (r *sinkRecorder) mediaCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if _, ok := m.(mediaMessage); ok {
			n++
		}
	}
	return n
}

func (r *sinkRecorder) sawClear() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if c, ok := m.(clearMessage); ok && c.Event == "clear" {
			return true
		}
	}
	return false
}

func TestStreamWriter_PacesFullFrames(t *testing.T) {
	rec := &sinkRecorder{}
	w := NewStreamWriter("MZ123", rec.send)
	defer w.Close()

	// Two full frames of 48kHz audio (2 * 960 samples * 2 bytes).
	pcm := make([]byte, 2*frameSamples48k*2)
	w.WritePCM(pcm)

	deadline := time.Now().Add(2 * time.Second)
	for rec.mediaCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := rec.mediaCount(); got < 2 {
		t.Fatalf("paced %d media frames, want at least 2", got)
	}

	rec.mu.Lock()
	first := rec.msgs[0].(mediaMessage)
	rec.mu.Unlock()
	if first.StreamSid != "MZ123" {
		t.Fatalf("streamSid %q", first.StreamSid)
	}
	raw, err := base64.StdEncoding.DecodeString(first.Media.Payload)
	if err != nil {
		t.Fatalf("payload not base64: %v", err)
	}
	if len(raw) != 160 {
		t.Fatalf("frame payload %d bytes, want 160", len(raw))
	}
}

func TestStreamWriter_ResetDropsQueueAndClears(t *testing.T) {
	rec := &sinkRecorder{}
	w := NewStreamWriter("MZ456", rec.send)
	defer w.Close()

	pcm := make([]byte, 4*frameSamples48k*2)
	w.WritePCM(pcm)
	w.Reset()

	if !rec.sawClear() {
		t.Fatalf("expected a clear message after reset")
	}
	if len(w.frames) != 0 {
		t.Fatalf("queue not drained: %d frames left", len(w.frames))
	}
}

func TestWebhookSignature(t *testing.T) {
	params := map[string]string{"CallSid": "CA1", "CallStatus": "completed"}
	u := "https://calls.example.com/twilio/status/abc"

	if validateSignature("token", "bogus", u, params) {
		t.Fatalf("accepted a bogus signature")
	}
	if validateSignature("", "anything", u, params) {
		t.Fatalf("accepted with empty auth token")
	}
	// A signature computed with the same token and inputs must verify.
	sig := computeSignature("token", u, params)
	if !validateSignature("token", sig, u, params) {
		t.Fatalf("rejected a valid signature")
	}
}
