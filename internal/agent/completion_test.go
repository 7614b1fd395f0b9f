package agent

import (
	"testing"

	"github.com/mrtheegala/Outbound-GenVoice/internal/dialogue"
)

func TestDetector_MarkerIsAuthoritative(t *testing.T) {
	d := NewDetector(60)
	terminal, reason := d.IsTerminal("Thank you for your help. "+dialogue.EndOfCallMarker, "let me check on that", 3)
	if !terminal {
		t.Fatalf("expected terminal on explicit marker")
	}
	if reason != ReasonCompleted {
		t.Fatalf("expected reason %q, got %q", ReasonCompleted, reason)
	}
}

func TestDetector_MarkerShortCircuitsPhrases(t *testing.T) {
	d := NewDetector(60)
	// Both signals present: the marker wins and sets the completed reason.
	terminal, reason := d.IsTerminal(dialogue.EndOfCallMarker, "okay goodbye", 3)
	if !terminal || reason != ReasonCompleted {
		t.Fatalf("marker must take precedence: terminal=%v reason=%q", terminal, reason)
	}
}

func TestDetector_ClosingPhrase(t *testing.T) {
	d := NewDetector(60)
	cases := []string{
		"Alright, goodbye!",
		"You have a great day now",
		"Thanks for calling, take care",
	}
	for _, c := range cases {
		terminal, reason := d.IsTerminal("Anything else I can verify?", c, 5)
		if !terminal || reason != ReasonCounterpartyBye {
			t.Fatalf("expected closing-phrase terminal for %q, got terminal=%v reason=%q", c, terminal, reason)
		}
	}
}

func TestDetector_TurnCeiling(t *testing.T) {
	d := NewDetector(10)
	if terminal, _ := d.IsTerminal("continuing", "continuing", 9); terminal {
		t.Fatalf("unexpected terminal below ceiling")
	}
	terminal, reason := d.IsTerminal("continuing", "continuing", 10)
	if !terminal || reason != ReasonTurnLimit {
		t.Fatalf("expected turn-limit terminal, got terminal=%v reason=%q", terminal, reason)
	}
}

func TestDetector_Idempotent(t *testing.T) {
	d := NewDetector(60)
	agentText := "All set then. " + dialogue.EndOfCallMarker
	repText := "thanks, goodbye"
	t1, r1 := d.IsTerminal(agentText, repText, 7)
	t2, r2 := d.IsTerminal(agentText, repText, 7)
	if t1 != t2 || r1 != r2 {
		t.Fatalf("detector not idempotent: (%v,%q) vs (%v,%q)", t1, r1, t2, r2)
	}
}

func TestDetector_NoSignals(t *testing.T) {
	d := NewDetector(60)
	if terminal, reason := d.IsTerminal("What is the reference number?", "one moment please", 4); terminal || reason != "" {
		t.Fatalf("unexpected terminal: %v %q", terminal, reason)
	}
}
