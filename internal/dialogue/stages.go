package dialogue

import "github.com/mrtheegala/Outbound-GenVoice/internal/record"

// Stage is one fixed conversational objective in the ordered call script.
type Stage struct {
	Index     int
	Name      string
	Objective string
}

// Script is the ordered stage set for one call purpose. The final stage is
// the professional close; only the completion detector exits it.
type Script struct {
	Purpose record.CallPurpose
	Stages  []Stage
}

// Last reports whether idx is the closing stage.
func (s Script) Last(idx int) bool { return idx >= len(s.Stages)-1 }

// Stage returns the stage at idx, clamped to the script bounds.
func (s Script) Stage(idx int) Stage {
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.Stages) {
		idx = len(s.Stages) - 1
	}
	return s.Stages[idx]
}

var priorAuthScript = Script{
	Purpose: record.PurposePriorAuth,
	Stages: []Stage{
		{0, "introduction", "Greet professionally, state your name, role, and company. Mention provider name and NPI. Clearly state purpose: prior authorization request for a specific procedure. Verify you've reached the correct department."},
		{1, "patient_demographics", "Provide patient name, date of birth, and member ID. Verify active coverage and eligibility. Ensure the patient is found in the system."},
		{2, "procedure_request", "State the CPT procedure code, procedure name, ICD diagnosis code, and proposed service date. Ensure the authorization request is initiated."},
		{3, "medical_necessity", "Explain clinical presentation, failed conservative treatments, duration and severity of symptoms, and impact on the patient's quality of life. Address clinical criteria for approval."},
		{4, "documentation", "Ask what documentation is required, confirm submission method (fax or portal), get submission deadline and fax number. Clarify any specific forms needed."},
		{5, "timeline", "Confirm standard turnaround time. If urgent or stat, explain urgency and request expedited review. Get the expected decision date."},
		{6, "escalation_check", "If medical necessity is questioned, offer peer-to-peer with the clinical director. If clinical criteria are not met, request the specific requirements. Document the escalation path if needed."},
		{7, "reference_capture", "Request and document the authorization reference number. Get the representative's name and ID. Get a direct callback number. Repeat the reference number for confirmation."},
		{8, "next_steps", "Summarize what was discussed. Confirm next steps and timeline. Confirm the notification method (phone, fax, or portal). Ensure all parties are aligned."},
		{9, "close", "Thank the representative for their assistance. Confirm you have all necessary information. Professional goodbye. Output " + EndOfCallMarker + " to mark that the call should end now."},
	},
}

var denialMgmtScript = Script{
	Purpose: record.PurposeDenialManagement,
	Stages: []Stage{
		{0, "introduction", "State your name, role, and company. Provide the claim number, service date, and denial code. Verify the claim is located in the system."},
		{1, "denial_clarification", "Request a detailed explanation of the denial. Ask for the specific reason beyond the denial code. Confirm understanding of what triggered the denial."},
		{2, "resolution_discussion", "Ask about resolution options. Inquire whether resubmission or a formal appeal is needed. Understand the correction process and identify the path forward."},
		{3, "documentation", "Get the complete list of required documents. Confirm the submission method (fax, portal, or mail). Get the submission deadline. Clarify any specific forms or attestations needed."},
		{4, "timeline", "Confirm the reprocessing timeline. Get the appeal deadline if applicable. Request the expected decision date. Document all deadlines."},
		{5, "escalation_check", "If an appeal is required, get the appeal process details. If peer-to-peer is needed, request the scheduling process. Document the escalation path."},
		{6, "reference_capture", "Get a reference number for this inquiry. Document the representative's name and ID. Get a direct callback number. Confirm the contact for follow-up."},
		{7, "next_steps", "Recap what will be submitted. Confirm the timeline for submission. Confirm the follow-up process. Ensure all parties are aligned."},
		{8, "close", "Thank the representative. Confirm the next contact point. Professional goodbye. Output " + EndOfCallMarker + " to mark that the call should end now."},
	},
}

var verificationScript = Script{
	Purpose: record.PurposeInsuranceVerification,
	Stages: []Stage{
		{0, "introduction", "State your name, role, and company. State the purpose: insurance verification. Verify you've reached the correct department."},
		{1, "patient_identification", "Provide patient name, date of birth, and member ID. Verify the patient is found in the system."},
		{2, "coverage_verification", "Confirm active coverage. Verify effective dates. Confirm the plan type."},
		{3, "benefits_inquiry", "Ask about the deductible (met and remaining). Ask about the co-insurance percentage. Ask about the out-of-pocket maximum. Verify in-network status of the provider."},
		{4, "procedure_benefits", "Inquire about coverage for the specific CPT code. Ask about prior authorization requirements. Get pre-certification requirements if any."},
		{5, "reference_capture", "Request a reference number. Get the representative's name. Document all benefit details."},
		{6, "close", "Thank the representative. Confirm all information was captured. Output " + EndOfCallMarker + " to mark that the call should end now."},
	},
}

// ScriptFor returns the stage script for a call purpose, defaulting to prior
// authorization when the purpose is unrecognized.
func ScriptFor(purpose record.CallPurpose) Script {
	switch purpose {
	case record.PurposeDenialManagement:
		return denialMgmtScript
	case record.PurposeInsuranceVerification:
		return verificationScript
	default:
		return priorAuthScript
	}
}
