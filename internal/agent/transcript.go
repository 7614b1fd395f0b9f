package agent

import (
	"strings"
	"sync"
	"time"

	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
)

// Transcript is the per-call append-only log of utterances, the canonical
// record handed to extraction. The session goroutine is the only writer;
// reads may come from the observability surface, hence the mutex.
type Transcript struct {
	mu      sync.Mutex
	entries []record.Utterance
	// interim is the latest unconfirmed hypothesis for the in-flight
	// counterparty utterance. It is superseded in place and dropped once
	// the final hypothesis arrives.
	interim string
}

func NewTranscript() *Transcript { return &Transcript{} }

// AppendFinal records one confirmed spoken turn at the given stage.
func (t *Transcript) AppendFinal(speaker record.Speaker, text string, stage int) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	t.mu.Lock()
	t.entries = append(t.entries, record.Utterance{
		Speaker:   speaker,
		Text:      text,
		Stage:     stage,
		Timestamp: time.Now().UTC(),
		Final:     true,
	})
	t.interim = ""
	t.mu.Unlock()
}

// ObserveInterim replaces the current interim hypothesis.
func (t *Transcript) ObserveInterim(text string) {
	t.mu.Lock()
	t.interim = text
	t.mu.Unlock()
}

// Utterances returns a copy of the confirmed entries in call-time order.
func (t *Transcript) Utterances() []record.Utterance {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]record.Utterance, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of confirmed entries.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Tail renders the last n confirmed turns as labeled lines for prompting.
func (t *Transcript) Tail(n int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	start := 0
	if n > 0 && len(t.entries) > n {
		start = len(t.entries) - n
	}
	var b strings.Builder
	for _, u := range t.entries[start:] {
		if u.Speaker == record.SpeakerAgent {
			b.WriteString("[AGENT] ")
		} else {
			b.WriteString("[REPRESENTATIVE] ")
		}
		b.WriteString(u.Text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
