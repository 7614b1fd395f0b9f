package agent

import (
	"strings"

	"github.com/mrtheegala/Outbound-GenVoice/internal/dialogue"
)

// Termination reasons recorded on the session.
const (
	ReasonCompleted        = "completed"
	ReasonCounterpartyBye  = "counterparty closing"
	ReasonTurnLimit        = "turn limit reached"
	ReasonRemoteHangup     = "remote hangup"
	ReasonTransportFailure = "transport failure"
)

// closingPhrases is the closed set of counterparty phrases treated as a
// secondary end-of-call signal.
var closingPhrases = []string{
	"goodbye",
	"bye now",
	"have a great day",
	"have a good day",
	"have a nice day",
	"thanks for calling",
	"thank you for calling",
	"take care",
}

// Detector decides when the live call loop is finished. The explicit
// generator marker is authoritative and short-circuits phrase scanning.
type Detector struct {
	maxTurns int
}

// NewDetector builds a detector with the given turn-count ceiling.
// A non-positive ceiling disables the safety signal.
func NewDetector(maxTurns int) *Detector { return &Detector{maxTurns: maxTurns} }

// IsTerminal inspects the latest pair of utterances and the running turn
// count. It is a pure function of its inputs: the same inputs always yield
// the same verdict.
func (d *Detector) IsTerminal(agentUtterance, counterpartyUtterance string, turnCount int) (bool, string) {
	if strings.Contains(agentUtterance, dialogue.EndOfCallMarker) {
		return true, ReasonCompleted
	}
	low := strings.ToLower(counterpartyUtterance)
	for _, p := range closingPhrases {
		if strings.Contains(low, p) {
			return true, ReasonCounterpartyBye
		}
	}
	if d.maxTurns > 0 && turnCount >= d.maxTurns {
		return true, ReasonTurnLimit
	}
	return false, ""
}
