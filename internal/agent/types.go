package agent

import (
	"context"
	"time"

	"github.com/mrtheegala/Outbound-GenVoice/internal/dialogue"
	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
)

// Transcriber is the minimal interface for realtime STT. It accepts PCM
// 16kHz little-endian mono buffers and emits interim and finalized text.
type Transcriber interface {
	Connect() error
	SendPCM16KLE(pcm []byte) error
	// Partials streams interim hypotheses; each supersedes the previous one
	// for the same audio span.
	Partials() <-chan string
	// Finalize signals end-of-utterance with the confirmed text.
	Finalize() <-chan string
	// RecentlyDetectedVoice returns true if voice energy was seen within the given window.
	RecentlyDetectedVoice(window time.Duration) bool
	Close() error
}

// GenerateRequest carries the context the generator needs for one turn.
type GenerateRequest struct {
	Facts   record.CallFacts
	Stage   dialogue.Stage
	History string
}

// Generator streams the next agent utterance as text segments for a fully
// rendered prompt. Segments may contain the dialogue stage-advance and
// end-of-call markers.
type Generator interface {
	Stream(ctx context.Context, prompt string) (<-chan string, <-chan error)
}

// TTS streams 48kHz PCM mono audio for the given text.
type TTS interface {
	StreamPCM48k(ctx context.Context, text string) (<-chan []byte, <-chan error)
}

// PCM48kSink consumes 48kHz PCM bytes and performs delivery to the call
// transport. Implementations buffer internally and pace delivery.
type PCM48kSink interface {
	WritePCM(pcm []byte)
	FlushTail()
	// Reset drops any queued frames immediately (used for barge-in).
	Reset()
}

type nopSink struct{}

func (nopSink) WritePCM(_ []byte) {}
func (nopSink) FlushTail()        {}
func (nopSink) Reset()            {}
