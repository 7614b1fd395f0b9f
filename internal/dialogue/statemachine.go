package dialogue

// Markers the generator embeds in its output to steer the call.
const (
	EndOfCallMarker    = "<END_OF_CALL>"
	AdvanceStageMarker = "<NEXT_STAGE>"
)

// Signal drives a stage transition.
type Signal int

const (
	// SignalNone records a completed turn without requesting advancement.
	SignalNone Signal = iota
	// SignalAdvance is the explicit generator marker: move to the next stage.
	SignalAdvance
	// SignalStalled is the elapsed-turn heuristic: too many turns on one
	// stage without progress forces an advisory advance.
	SignalStalled
	// SignalClarify holds the current stage for a clarification sub-loop.
	// It delays advancement but never decrements the recorded index.
	SignalClarify
)

// stalledTurnLimit is the turn count on a single stage after which
// SignalStalled fires from Observe.
const stalledTurnLimit = 6

// StateMachine holds the ordered stage set and the transition policy for one
// session. The stage index is monotonically non-decreasing; transitions are
// deterministic given (current stage, signal) and duplicate or out-of-order
// signals are idempotent no-ops.
type StateMachine struct {
	script       Script
	index        int
	turnsAtStage int
	holding      bool
}

// NewStateMachine starts a machine at the given script's first stage.
func NewStateMachine(script Script) *StateMachine {
	return &StateMachine{script: script}
}

// Current returns the stage the agent should be working on right now.
func (m *StateMachine) Current() Stage { return m.script.Stage(m.index) }

// Index returns the current stage index.
func (m *StateMachine) Index() int { return m.index }

// Terminal reports whether the machine sits at the closing stage.
func (m *StateMachine) Terminal() bool { return m.script.Last(m.index) }

// Advance applies a signal and returns the resulting stage. Advancing past
// the closing stage is a no-op; only the completion detector exits the loop.
func (m *StateMachine) Advance(sig Signal) Stage {
	switch sig {
	case SignalAdvance, SignalStalled:
		if !m.script.Last(m.index) {
			m.index++
			m.turnsAtStage = 0
			m.holding = false
		}
	case SignalClarify:
		// Stay put; reset the stall counter so the hold is not immediately
		// overridden by the heuristic.
		m.holding = true
		m.turnsAtStage = 0
	}
	return m.Current()
}

// SkipTo jumps forward to the given stage index, clamped to the closing
// stage. Requests at or behind the current index are no-ops: the index
// never rewinds.
func (m *StateMachine) SkipTo(idx int) {
	for m.index < idx && !m.script.Last(m.index) {
		m.index++
	}
	m.turnsAtStage = 0
	m.holding = false
}

// Observe records one completed turn on the current stage and returns
// SignalStalled when the turn budget for a stage is exhausted, otherwise
// SignalNone. The caller feeds the result back into Advance.
func (m *StateMachine) Observe() Signal {
	m.turnsAtStage++
	if !m.holding && m.turnsAtStage >= stalledTurnLimit && !m.script.Last(m.index) {
		return SignalStalled
	}
	return SignalNone
}
