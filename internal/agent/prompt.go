package agent

import (
	"fmt"
	"strings"

	"github.com/mrtheegala/Outbound-GenVoice/internal/dialogue"
)

// buildPrompt renders the generation context for one turn: static call
// facts, the current stage objective, the control-marker contract and the
// transcript tail.
func buildPrompt(req GenerateRequest) string {
	var b strings.Builder
	b.WriteString("You are a professional healthcare revenue-cycle agent on a live phone call with an insurance representative. ")
	b.WriteString("Speak naturally and concisely, one or two sentences per turn. Never invent clinical facts.\n\n")

	b.WriteString("CALL FACTS:\n")
	writeFact := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
	}
	writeFact("call purpose", string(req.Facts.Purpose))
	writeFact("insurance company", req.Facts.InsuranceCompany)
	writeFact("patient name", req.Facts.PatientName)
	writeFact("patient date of birth", req.Facts.PatientDOB)
	writeFact("member id", req.Facts.MemberID)
	writeFact("provider name", req.Facts.ProviderName)
	writeFact("provider NPI", req.Facts.ProviderNPI)
	writeFact("CPT code", req.Facts.CPTCode)
	writeFact("procedure", req.Facts.ProcedureDescription)
	writeFact("ICD code", req.Facts.ICDCode)
	writeFact("diagnosis", req.Facts.DiagnosisDescription)
	writeFact("proposed service date", req.Facts.ProposedDate)
	writeFact("urgency", req.Facts.Urgency)
	writeFact("claim number", req.Facts.ClaimNumber)
	writeFact("denial code", req.Facts.DenialCode)
	writeFact("service date", req.Facts.ServiceDate)

	fmt.Fprintf(&b, "\nCURRENT OBJECTIVE (stage %d, %s):\n%s\n", req.Stage.Index+1, req.Stage.Name, req.Stage.Objective)

	b.WriteString("\nWhen the current objective is accomplished, append ")
	b.WriteString(dialogue.AdvanceStageMarker)
	b.WriteString(" to your reply. When the call should end, append ")
	b.WriteString(dialogue.EndOfCallMarker)
	b.WriteString(". Output no other markup.\n")

	if req.History != "" {
		b.WriteString("\nCONVERSATION SO FAR:\n")
		b.WriteString(req.History)
		b.WriteString("\n")
	}
	b.WriteString("\nYour next line as [AGENT]:")
	return b.String()
}
