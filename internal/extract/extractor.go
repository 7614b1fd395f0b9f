package extract

import (
	"context"
	"log"
	"time"

	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
)

// Extractor turns a finished call into an unvalidated DraftRecord. The
// structured strategy runs first; the pattern strategy fills whatever it
// missed. Extraction is total: it degrades, it never fails.
type Extractor struct {
	primary  Strategy
	fallback Strategy
}

// New builds an extractor backed by the given completion client. A nil
// completer leaves only the pattern path, which is how the pipeline keeps
// working through a provider outage.
func New(c Completer) *Extractor {
	return &Extractor{
		primary:  llmStrategy{completer: c},
		fallback: patternStrategy{},
	}
}

// Extract produces the draft record for a completed call.
func (e *Extractor) Extract(ctx context.Context, call record.CompletedCall) record.DraftRecord {
	transcript := call.TranscriptText()

	var primary Entities
	if transcript != "" {
		var err error
		primary, err = e.primary.Extract(ctx, transcript)
		if err != nil {
			log.Printf("[extract] call=%s primary strategy failed, continuing with fallback: %v", call.ID, err)
			primary = nil
		}
	}
	fallback, _ := e.fallback.Extract(ctx, transcript)

	draft := seedFromFacts(call)

	// Denial-management calls record their outcome as a resolution, not an
	// authorization status; the status vocabulary is skipped for them so the
	// word "denial" on the call cannot masquerade as a denied decision.
	denial := call.Facts.Purpose == record.PurposeDenialManagement
	apply(&draft, primary, record.ProvenanceExtracted, denial)
	apply(&draft, fallback, record.ProvenanceFallback, denial)

	if draft.Authorization.Status == "" {
		draft.Authorization.Status = record.StatusUnknown
		draft.SetProvenance("authorization.status", record.ProvenanceInferred)
	}
	if denial && draft.Denial.Resolution == "" {
		draft.Denial.Resolution = record.ResolutionUnknown
		draft.SetProvenance("denial.resolution", record.ProvenanceInferred)
	}
	if draft.Timeline.TurnaroundDays > 0 && draft.Timeline.ExpectedDecisionDate == nil {
		d := call.EndedAt.AddDate(0, 0, draft.Timeline.TurnaroundDays)
		draft.Timeline.ExpectedDecisionDate = &d
		draft.SetProvenance("timeline.expected_decision_date", record.ProvenanceInferred)
	}
	return draft
}

// seedFromFacts copies the identifiers known before dialing. These are
// configuration, not conversation, so they carry inferred provenance.
func seedFromFacts(call record.CompletedCall) record.DraftRecord {
	f := call.Facts
	draft := record.DraftRecord{
		CallID:           call.ID,
		CallDate:         call.StartedAt,
		InsuranceCompany: f.InsuranceCompany,
		Patient: record.PatientInfo{
			Name:        f.PatientName,
			DateOfBirth: f.PatientDOB,
			MemberID:    f.MemberID,
		},
		Provider: record.ProviderInfo{
			Name: f.ProviderName,
			NPI:  f.ProviderNPI,
		},
		Procedure: record.ProcedureInfo{
			CPTCode:      f.CPTCode,
			Description:  f.ProcedureDescription,
			ICDCode:      f.ICDCode,
			ProposedDate: record.ParseDate(f.ProposedDate),
			Urgency:      f.Urgency,
		},
	}
	draft.Procedure.ICDDescription = f.DiagnosisDescription
	seed := func(field, value string) {
		if value != "" {
			draft.SetProvenance(field, record.ProvenanceInferred)
		}
	}
	seed("insurance_company", f.InsuranceCompany)
	seed("patient.name", f.PatientName)
	seed("patient.date_of_birth", f.PatientDOB)
	seed("patient.member_id", f.MemberID)
	seed("provider.name", f.ProviderName)
	seed("provider.npi", f.ProviderNPI)
	seed("procedure.cpt_code", f.CPTCode)
	seed("procedure.icd_code", f.ICDCode)
	seed("procedure.proposed_date", f.ProposedDate)
	return draft
}

// apply copies entity values into the draft without overwriting fields a
// higher-priority pass already populated. denialCall selects which outcome
// taxonomy the transcript's keywords feed.
func apply(d *record.DraftRecord, ents Entities, prov record.Provenance, denialCall bool) {
	if len(ents) == 0 {
		return
	}
	setStr := func(dst *string, field, key string) {
		if *dst != "" {
			return
		}
		if v := ents.Str(key); v != "" {
			*dst = v
			d.SetProvenance(field, prov)
		}
	}
	setDate := func(dst **time.Time, field, key string) {
		if *dst != nil {
			return
		}
		if t := record.ParseDate(ents.Str(key)); t != nil {
			*dst = t
			d.SetProvenance(field, prov)
		}
	}

	if denialCall {
		if d.Denial.Resolution == "" || d.Denial.Resolution == record.ResolutionUnknown {
			if parsed := record.ParseDenialResolution(ents.Str(FieldDenialResolution)); parsed != record.ResolutionUnknown {
				d.Denial.Resolution = parsed
				d.SetProvenance("denial.resolution", prov)
			}
		}
		setStr(&d.Denial.DetailedReason, "denial.detailed_reason", FieldDenialReason)
		setDate(&d.Denial.AppealDeadline, "denial.appeal_deadline", FieldAppealDeadline)
	} else if d.Authorization.Status == "" || d.Authorization.Status == record.StatusUnknown {
		// "unknown" carries no information, so it never claims provenance;
		// the default at the end of Extract covers it.
		if parsed := record.ParseAuthStatus(ents.Str(FieldStatus)); parsed != record.StatusUnknown {
			d.Authorization.Status = parsed
			d.SetProvenance("authorization.status", prov)
		}
	}
	setStr(&d.Authorization.ReferenceNumber, "authorization.reference_number", FieldReferenceNumber)
	setStr(&d.Authorization.AuthorizationNumber, "authorization.authorization_number", FieldAuthNumber)
	setStr(&d.Authorization.Notes, "authorization.notes", FieldNotes)
	setDate(&d.Authorization.ValidFrom, "authorization.valid_from", FieldValidFrom)
	setDate(&d.Authorization.ValidTo, "authorization.valid_to", FieldValidTo)

	setStr(&d.Representative.Name, "representative.name", FieldRepName)
	setStr(&d.Representative.ID, "representative.id", FieldRepID)
	setStr(&d.Representative.Phone, "representative.phone", FieldRepPhone)

	if len(d.Documentation.RequiredDocuments) == 0 {
		if docs := ents.Strs(FieldDocsRequired); len(docs) > 0 {
			d.Documentation.RequiredDocuments = docs
			d.SetProvenance("documentation.required_documents", prov)
		}
	}
	setStr(&d.Documentation.SubmissionMethod, "documentation.submission_method", FieldSubmissionMethod)
	setStr(&d.Documentation.FaxNumber, "documentation.fax_number", FieldFaxNumber)
	setStr(&d.Documentation.PortalURL, "documentation.portal_url", FieldPortalURL)
	setDate(&d.Documentation.SubmissionDeadline, "documentation.submission_deadline", FieldSubmissionDeadline)

	if d.Timeline.TurnaroundDays == 0 {
		if n := ents.Int(FieldTurnaroundDays); n > 0 {
			d.Timeline.TurnaroundDays = n
			d.SetProvenance("timeline.turnaround_days", prov)
		}
	}
	if !d.Timeline.ExpeditedRequested && ents.Bool(FieldExpedited) {
		d.Timeline.ExpeditedRequested = true
		d.SetProvenance("timeline.expedited_requested", prov)
	}

	if len(d.NextStepsMentioned) == 0 {
		if steps := ents.Strs(FieldNextSteps); len(steps) > 0 {
			d.NextStepsMentioned = steps
			d.SetProvenance("next_steps_mentioned", prov)
		}
	}
}
