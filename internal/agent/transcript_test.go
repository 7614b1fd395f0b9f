package agent

import (
	"strings"
	"testing"

	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
)

func TestTranscript_AppendOnlyOrder(t *testing.T) {
	tr := NewTranscript()
	tr.AppendFinal(record.SpeakerAgent, "Hello, this is Sarah from Valley Medical.", 0)
	tr.AppendFinal(record.SpeakerCounterparty, "Hi, how can I help?", 0)
	tr.AppendFinal(record.SpeakerAgent, "Calling about a prior authorization.", 1)

	got := tr.Utterances()
	if len(got) != 3 {
		t.Fatalf("expected 3 utterances, got %d", len(got))
	}
	if got[0].Speaker != record.SpeakerAgent || got[1].Speaker != record.SpeakerCounterparty {
		t.Fatalf("speaker order wrong: %+v", got)
	}
	if got[2].Stage != 1 {
		t.Fatalf("stage-at-time not recorded: %+v", got[2])
	}
	for _, u := range got {
		if !u.Final {
			t.Fatalf("expected only final utterances in the log")
		}
	}
}

func TestTranscript_InterimSupersededNotRetained(t *testing.T) {
	tr := NewTranscript()
	tr.ObserveInterim("the ref")
	tr.ObserveInterim("the reference number")
	tr.AppendFinal(record.SpeakerCounterparty, "the reference number is PA-123", 7)

	got := tr.Utterances()
	if len(got) != 1 {
		t.Fatalf("interim hypotheses must not be retained, got %d entries", len(got))
	}
	if got[0].Text != "the reference number is PA-123" {
		t.Fatalf("unexpected final text: %q", got[0].Text)
	}
}

func TestTranscript_EmptyTextIgnored(t *testing.T) {
	tr := NewTranscript()
	tr.AppendFinal(record.SpeakerAgent, "   ", 0)
	if tr.Len() != 0 {
		t.Fatalf("blank utterance recorded")
	}
}

func TestTranscript_TailRendersLabels(t *testing.T) {
	tr := NewTranscript()
	tr.AppendFinal(record.SpeakerAgent, "one", 0)
	tr.AppendFinal(record.SpeakerCounterparty, "two", 0)
	tr.AppendFinal(record.SpeakerAgent, "three", 0)

	tail := tr.Tail(2)
	if strings.Contains(tail, "one") {
		t.Fatalf("tail should only include last 2 turns: %q", tail)
	}
	if !strings.Contains(tail, "[REPRESENTATIVE] two") || !strings.Contains(tail, "[AGENT] three") {
		t.Fatalf("labels missing: %q", tail)
	}
}
