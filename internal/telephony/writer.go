package telephony

import (
	"encoding/base64"
	"sync"
	"time"
)

// frameSamples48k is 20ms of audio at 48 kHz; it downsamples to one
// 160-byte mu-law media frame, Twilio's native cadence.
const frameSamples48k = 960

// StreamWriter adapts synthesized 48 kHz PCM onto a Twilio media stream:
// downsample, mu-law encode, then emit one frame every 20ms so the carrier
// buffer never runs ahead of real time. It is the session's audio sink.
type StreamWriter struct {
	streamSid string
	send      func(v any) error

	mu      sync.Mutex
	pcmBuf  []int16
	stopped bool

	frames chan string
	stopCh chan struct{}
}

// NewStreamWriter starts the pacer. send delivers one JSON message to the
// websocket and must be safe for concurrent use.
func NewStreamWriter(streamSid string, send func(v any) error) *StreamWriter {
	w := &StreamWriter{
		streamSid: streamSid,
		send:      send,
		frames:    make(chan string, 512),
		stopCh:    make(chan struct{}),
	}
	go w.pacer()
	return w
}

type mediaMessage struct {
	Event     string       `json:"event"`
	StreamSid string       `json:"streamSid"`
	Media     mediaPayload `json:"media"`
}

type mediaPayload struct {
	Payload string `json:"payload"`
}

type clearMessage struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
}

// WritePCM buffers 48 kHz little-endian PCM and emits full media frames.
func (w *StreamWriter) WritePCM(pcm []byte) {
	if len(pcm) < 2 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pcmBuf = append(w.pcmBuf, bytesToSamples(pcm)...)
	for len(w.pcmBuf) >= frameSamples48k {
		w.pushFrame(encodeFrame(w.pcmBuf[:frameSamples48k]))
		copy(w.pcmBuf, w.pcmBuf[frameSamples48k:])
		w.pcmBuf = w.pcmBuf[:len(w.pcmBuf)-frameSamples48k]
	}
}

// FlushTail pads the remaining buffer to a full frame and appends a short
// silence tail so the last syllable is not clipped by the carrier.
func (w *StreamWriter) FlushTail() {
	w.mu.Lock()
	if len(w.pcmBuf) > 0 {
		pad := make([]int16, frameSamples48k)
		copy(pad, w.pcmBuf)
		w.pushFrame(encodeFrame(pad))
		w.pcmBuf = w.pcmBuf[:0]
	}
	silence := encodeFrame(make([]int16, frameSamples48k))
	for i := 0; i < 10; i++ { // ~200ms
		w.pushFrame(silence)
	}
	w.mu.Unlock()
}

// Reset drops everything queued and tells the carrier to clear its own
// buffer. This is the barge-in path: audio must stop now, not when the
// queue drains.
func (w *StreamWriter) Reset() {
	w.mu.Lock()
	for {
		select {
		case <-w.frames:
		default:
			w.pcmBuf = w.pcmBuf[:0]
			w.mu.Unlock()
			_ = w.send(clearMessage{Event: "clear", StreamSid: w.streamSid})
			return
		}
	}
}

// Close stops the pacer.
func (w *StreamWriter) Close() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.stopCh)
	}
	w.mu.Unlock()
}

func (w *StreamWriter) pacer() {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			select {
			case payload := <-w.frames:
				_ = w.send(mediaMessage{
					Event:     "media",
					StreamSid: w.streamSid,
					Media:     mediaPayload{Payload: payload},
				})
			default:
			}
		}
	}
}

// pushFrame enqueues a frame, blocking until space frees or the writer stops.
func (w *StreamWriter) pushFrame(payload string) {
	for {
		select {
		case <-w.stopCh:
			return
		case w.frames <- payload:
			return
		}
	}
}

func encodeFrame(samples48k []int16) string {
	mulaw := make([]byte, 0, len(samples48k)/6)
	for _, s := range Downsample48kTo8k(samples48k) {
		mulaw = append(mulaw, EncodeMulaw(s))
	}
	return base64.StdEncoding.EncodeToString(mulaw)
}
