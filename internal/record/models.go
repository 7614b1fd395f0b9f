package record

import (
	"encoding/json"
	"time"
)

// CallPurpose selects the conversation script and the validation rule set.
type CallPurpose string

const (
	PurposePriorAuth             CallPurpose = "prior_authorization"
	PurposeDenialManagement      CallPurpose = "denial_management"
	PurposeInsuranceVerification CallPurpose = "insurance_verification"
)

// AuthStatus is the authorization status taxonomy shared between the
// conversation layer and the post-call pipeline.
type AuthStatus string

const (
	StatusApproved           AuthStatus = "approved"
	StatusDenied             AuthStatus = "denied"
	StatusPending            AuthStatus = "pending"
	StatusPeerToPeerRequired AuthStatus = "peer_to_peer_required"
	StatusAdditionalInfo     AuthStatus = "additional_info_required"
	StatusUnknown            AuthStatus = "unknown"
)

// ParseAuthStatus maps free-form status text onto the taxonomy, defaulting to unknown.
func ParseAuthStatus(s string) AuthStatus {
	switch AuthStatus(s) {
	case StatusApproved, StatusDenied, StatusPending, StatusPeerToPeerRequired, StatusAdditionalInfo:
		return AuthStatus(s)
	}
	return StatusUnknown
}

// DenialResolution is the outcome taxonomy for denial-management calls. A
// denied claim's fate is a resolution, not an authorization decision, so it
// gets its own vocabulary.
type DenialResolution string

const (
	ResolutionOverturned       DenialResolution = "overturned"
	ResolutionUpheld           DenialResolution = "upheld"
	ResolutionAppealRequired   DenialResolution = "appeal_required"
	ResolutionResubmitRequired DenialResolution = "resubmit_required"
	ResolutionPeerToPeer       DenialResolution = "peer_to_peer_required"
	ResolutionUnknown          DenialResolution = "unknown"
)

// ParseDenialResolution maps free-form resolution text onto the taxonomy,
// defaulting to unknown.
func ParseDenialResolution(s string) DenialResolution {
	switch DenialResolution(s) {
	case ResolutionOverturned, ResolutionUpheld, ResolutionAppealRequired,
		ResolutionResubmitRequired, ResolutionPeerToPeer:
		return DenialResolution(s)
	}
	return ResolutionUnknown
}

// Provenance records which extraction path produced a field value.
type Provenance string

const (
	ProvenanceExtracted Provenance = "extracted" // structured LLM extraction
	ProvenanceFallback  Provenance = "fallback"  // deterministic pattern match
	ProvenanceInferred  Provenance = "inferred"  // derived from call facts or computed
)

// Speaker attributes a transcript utterance.
type Speaker string

const (
	SpeakerAgent        Speaker = "agent"
	SpeakerCounterparty Speaker = "counterparty"
)

// Utterance is one spoken turn in a call transcript.
type Utterance struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Stage     int       `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
	Final     bool      `json:"final"`
}

// CallFacts is the immutable per-call configuration resolved at session start:
// identifiers known before dialing, used for prompting and to seed extraction.
type CallFacts struct {
	Purpose          CallPurpose `json:"purpose"`
	InsuranceCompany string      `json:"insurance_company,omitempty"`

	// InitialStage lets a caller start the dialogue past the opening stages,
	// e.g. when a transfer already handled introduction and verification.
	InitialStage int `json:"initial_stage,omitempty"`

	PatientName string `json:"patient_name,omitempty"`
	PatientDOB  string `json:"patient_dob,omitempty"`
	MemberID    string `json:"member_id,omitempty"`

	ProviderName string `json:"provider_name,omitempty"`
	ProviderNPI  string `json:"provider_npi,omitempty"`

	CPTCode              string `json:"cpt_code,omitempty"`
	ProcedureDescription string `json:"procedure_description,omitempty"`
	ICDCode              string `json:"icd_code,omitempty"`
	DiagnosisDescription string `json:"diagnosis_description,omitempty"`
	ProposedDate         string `json:"proposed_date,omitempty"`
	Urgency              string `json:"urgency,omitempty"`

	// Denial management only.
	ClaimNumber string `json:"claim_number,omitempty"`
	DenialCode  string `json:"denial_code,omitempty"`
	ServiceDate string `json:"service_date,omitempty"`
}

// ResolveFacts merges API-supplied overrides over static defaults into one
// immutable value. Defaults are never mutated.
func ResolveFacts(defaults, override CallFacts) CallFacts {
	out := defaults
	if override.Purpose != "" {
		out.Purpose = override.Purpose
	}
	if override.InitialStage > 0 {
		out.InitialStage = override.InitialStage
	}
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&out.InsuranceCompany, override.InsuranceCompany)
	pick(&out.PatientName, override.PatientName)
	pick(&out.PatientDOB, override.PatientDOB)
	pick(&out.MemberID, override.MemberID)
	pick(&out.ProviderName, override.ProviderName)
	pick(&out.ProviderNPI, override.ProviderNPI)
	pick(&out.CPTCode, override.CPTCode)
	pick(&out.ProcedureDescription, override.ProcedureDescription)
	pick(&out.ICDCode, override.ICDCode)
	pick(&out.DiagnosisDescription, override.DiagnosisDescription)
	pick(&out.ProposedDate, override.ProposedDate)
	pick(&out.Urgency, override.Urgency)
	pick(&out.ClaimNumber, override.ClaimNumber)
	pick(&out.DenialCode, override.DenialCode)
	pick(&out.ServiceDate, override.ServiceDate)
	if out.Purpose == "" {
		out.Purpose = PurposePriorAuth
	}
	return out
}

// PatientInfo holds patient demographics provided at call setup.
type PatientInfo struct {
	Name        string `json:"name,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	MemberID    string `json:"member_id,omitempty"`
}

// ProviderInfo holds the requesting provider's identity.
type ProviderInfo struct {
	Name  string `json:"name,omitempty"`
	NPI   string `json:"npi,omitempty"`
	Phone string `json:"phone,omitempty"`
	Fax   string `json:"fax,omitempty"`
}

// ProcedureInfo describes the procedure under discussion.
type ProcedureInfo struct {
	CPTCode        string     `json:"cpt_code,omitempty"`
	Description    string     `json:"description,omitempty"`
	ICDCode        string     `json:"icd_code,omitempty"`
	ICDDescription string     `json:"icd_description,omitempty"`
	ProposedDate   *time.Time `json:"proposed_date,omitempty"`
	Urgency        string     `json:"urgency,omitempty"`
}

// AuthorizationInfo holds the decision details obtained from the payer.
type AuthorizationInfo struct {
	Status              AuthStatus `json:"status"`
	ReferenceNumber     string     `json:"reference_number,omitempty"`
	AuthorizationNumber string     `json:"authorization_number,omitempty"`
	ValidFrom           *time.Time `json:"valid_from,omitempty"`
	ValidTo             *time.Time `json:"valid_to,omitempty"`
	Notes               string     `json:"notes,omitempty"`
}

// RepresentativeInfo identifies the insurance representative spoken to.
type RepresentativeInfo struct {
	Name       string `json:"name,omitempty"`
	ID         string `json:"id,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Department string `json:"department,omitempty"`
}

// DocumentationInfo captures submission requirements stated on the call.
type DocumentationInfo struct {
	RequiredDocuments  []string   `json:"required_documents,omitempty"`
	SubmissionMethod   string     `json:"submission_method,omitempty"`
	FaxNumber          string     `json:"fax_number,omitempty"`
	PortalURL          string     `json:"portal_url,omitempty"`
	SubmissionDeadline *time.Time `json:"submission_deadline,omitempty"`
}

// DenialInfo holds the resolution of a denial-management call. Reprocessing
// time shares TimelineInfo.TurnaroundDays with the other call purposes.
type DenialInfo struct {
	Resolution     DenialResolution `json:"resolution,omitempty"`
	DetailedReason string           `json:"detailed_reason,omitempty"`
	AppealDeadline *time.Time       `json:"appeal_deadline,omitempty"`
}

// TimelineInfo captures turnaround expectations.
type TimelineInfo struct {
	TurnaroundDays       int        `json:"turnaround_days,omitempty"`
	ExpeditedRequested   bool       `json:"expedited_requested,omitempty"`
	ExpectedDecisionDate *time.Time `json:"expected_decision_date,omitempty"`
}

// DraftRecord is the unvalidated structured extraction of a finished call.
// Every populated field carries provenance keyed by its dotted path
// (e.g. "authorization.reference_number").
type DraftRecord struct {
	CallID           string    `json:"call_id"`
	CallDate         time.Time `json:"call_date"`
	InsuranceCompany string    `json:"insurance_company,omitempty"`

	Patient        PatientInfo        `json:"patient"`
	Provider       ProviderInfo       `json:"provider"`
	Procedure      ProcedureInfo      `json:"procedure"`
	Authorization  AuthorizationInfo  `json:"authorization"`
	Denial         DenialInfo         `json:"denial,omitempty"`
	Representative RepresentativeInfo `json:"representative"`
	Documentation  DocumentationInfo  `json:"documentation"`
	Timeline       TimelineInfo       `json:"timeline"`

	NextStepsMentioned []string `json:"next_steps_mentioned,omitempty"`

	Provenance map[string]Provenance `json:"provenance"`
}

// SetProvenance records which path produced the field at the given dotted path.
// Existing entries are never downgraded: the primary path wins over fallback.
func (d *DraftRecord) SetProvenance(field string, p Provenance) {
	if d.Provenance == nil {
		d.Provenance = make(map[string]Provenance)
	}
	if cur, ok := d.Provenance[field]; ok && cur == ProvenanceExtracted && p != ProvenanceExtracted {
		return
	}
	d.Provenance[field] = p
}

// CompletedCall is the read-only session snapshot handed to the post-call
// pipeline once the call is terminal.
type CompletedCall struct {
	ID         string      `json:"id"`
	Facts      CallFacts   `json:"facts"`
	StartedAt  time.Time   `json:"started_at"`
	EndedAt    time.Time   `json:"ended_at"`
	Reason     string      `json:"reason"`
	TurnCount  int         `json:"turn_count"`
	Transcript []Utterance `json:"transcript"`
}

// TranscriptText renders the transcript as labeled lines for extraction.
func (c CompletedCall) TranscriptText() string {
	var b []byte
	for _, u := range c.Transcript {
		if u.Speaker == SpeakerAgent {
			b = append(b, "[AGENT] "...)
		} else {
			b = append(b, "[REPRESENTATIVE] "...)
		}
		b = append(b, u.Text...)
		b = append(b, '\n')
	}
	return string(b)
}

// Severity of a validation finding.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityAdvisory Severity = "advisory"
)

// Finding is one field-level validation result.
type Finding struct {
	Field    string   `json:"field"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// ValidationResult annotates a DraftRecord without mutating it.
type ValidationResult struct {
	Findings      []Finding `json:"findings"`
	MissingFields []string  `json:"missing_fields"`
}

// IsComplete reports whether no blocking findings remain.
func (v ValidationResult) IsComplete() bool {
	for _, f := range v.Findings {
		if f.Severity == SeverityBlocking {
			return false
		}
	}
	return true
}

// Blocking returns the blocking findings in order.
func (v ValidationResult) Blocking() []Finding {
	var out []Finding
	for _, f := range v.Findings {
		if f.Severity == SeverityBlocking {
			out = append(out, f)
		}
	}
	return out
}

// Category is the fixed outcome set for a completed call.
type Category string

const (
	CategorySuccess          Category = "success"
	CategoryPendingAction    Category = "pending_action_required"
	CategoryDenied           Category = "denied"
	CategoryFailedIncomplete Category = "failed_incomplete"
)

// OutcomeRecord is the final artifact of one call. It is immutable once
// created; downstream collaborators only read it.
type OutcomeRecord struct {
	CallID            string      `json:"call_id"`
	Purpose           CallPurpose `json:"purpose"`
	StartedAt         time.Time   `json:"started_at"`
	EndedAt           time.Time   `json:"ended_at"`
	TerminationReason string      `json:"termination_reason"`
	TurnCount         int         `json:"turn_count"`

	Draft      DraftRecord      `json:"record"`
	Validation ValidationResult `json:"validation"`
	Category   Category         `json:"category"`
	NextSteps  []string         `json:"next_steps"`

	Transcript []Utterance `json:"transcript"`
}

// JSON renders the record as the flat nested key-value document expected by
// persistence collaborators.
func (r OutcomeRecord) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
