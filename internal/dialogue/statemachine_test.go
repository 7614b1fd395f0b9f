package dialogue

import (
	"testing"

	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
)

func TestStateMachine_MonotonicIndex(t *testing.T) {
	m := NewStateMachine(ScriptFor(record.PurposePriorAuth))
	signals := []Signal{SignalAdvance, SignalClarify, SignalAdvance, SignalNone, SignalStalled, SignalClarify, SignalAdvance}
	last := m.Index()
	for _, sig := range signals {
		m.Advance(sig)
		if m.Index() < last {
			t.Fatalf("stage index decreased: %d -> %d after signal %d", last, m.Index(), sig)
		}
		last = m.Index()
	}
}

func TestStateMachine_AdvanceStopsAtClose(t *testing.T) {
	script := ScriptFor(record.PurposeInsuranceVerification)
	m := NewStateMachine(script)
	for i := 0; i < len(script.Stages)+5; i++ {
		m.Advance(SignalAdvance)
	}
	if !m.Terminal() {
		t.Fatalf("expected terminal stage")
	}
	if got, want := m.Index(), len(script.Stages)-1; got != want {
		t.Fatalf("index overran script: got %d want %d", got, want)
	}
	// Duplicate advance at close is an idempotent no-op.
	before := m.Index()
	m.Advance(SignalAdvance)
	if m.Index() != before {
		t.Fatalf("advance at close mutated index")
	}
}

func TestStateMachine_ClarifyHoldsStage(t *testing.T) {
	m := NewStateMachine(ScriptFor(record.PurposePriorAuth))
	m.Advance(SignalAdvance)
	idx := m.Index()
	m.Advance(SignalClarify)
	if m.Index() != idx {
		t.Fatalf("clarify changed index: got %d want %d", m.Index(), idx)
	}
	// A clarification hold resets the stall counter.
	for i := 0; i < stalledTurnLimit-1; i++ {
		if sig := m.Observe(); sig != SignalNone {
			t.Fatalf("unexpected stall after clarify at turn %d", i)
		}
	}
}

func TestStateMachine_StalledHeuristicFires(t *testing.T) {
	m := NewStateMachine(ScriptFor(record.PurposePriorAuth))
	var fired bool
	for i := 0; i < stalledTurnLimit; i++ {
		if m.Observe() == SignalStalled {
			fired = true
			break
		}
	}
	if !fired {
		t.Fatalf("expected stalled signal after %d turns without progress", stalledTurnLimit)
	}
	idx := m.Index()
	m.Advance(SignalStalled)
	if m.Index() != idx+1 {
		t.Fatalf("stalled advance did not move stage: got %d want %d", m.Index(), idx+1)
	}
}

func TestStateMachine_SkipToClampsAndNeverRewinds(t *testing.T) {
	script := ScriptFor(record.PurposePriorAuth)
	m := NewStateMachine(script)

	m.SkipTo(3)
	if m.Index() != 3 {
		t.Fatalf("skip: got %d want 3", m.Index())
	}
	m.SkipTo(1)
	if m.Index() != 3 {
		t.Fatalf("skip rewound index: got %d", m.Index())
	}
	m.SkipTo(len(script.Stages) + 10)
	if got, want := m.Index(), len(script.Stages)-1; got != want {
		t.Fatalf("skip overran script: got %d want %d", got, want)
	}
}

func TestScriptFor_UnknownPurposeDefaultsToPriorAuth(t *testing.T) {
	s := ScriptFor(record.CallPurpose("bogus"))
	if s.Purpose != record.PurposePriorAuth {
		t.Fatalf("expected prior auth default, got %s", s.Purpose)
	}
	if len(s.Stages) != 10 {
		t.Fatalf("expected 10 prior auth stages, got %d", len(s.Stages))
	}
}
