package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
)

type stubCompleter struct {
	response string
	err      error
	calls    int
}

func (s *stubCompleter) Generate(_ context.Context, _, _ string) (string, error) {
	s.calls++
	return s.response, s.err
}

func completedCall(lines ...string) record.CompletedCall {
	var transcript []record.Utterance
	for i, l := range lines {
		sp := record.SpeakerAgent
		if i%2 == 1 {
			sp = record.SpeakerCounterparty
		}
		transcript = append(transcript, record.Utterance{Speaker: sp, Text: l, Final: true})
	}
	return record.CompletedCall{
		ID: "call-77",
		Facts: record.CallFacts{
			Purpose:          record.PurposePriorAuth,
			InsuranceCompany: "Acme Health",
			PatientName:      "John Smith",
			MemberID:         "M123456",
			ProviderName:     "Valley Medical",
			ProviderNPI:      "1234567890",
			CPTCode:          "72148",
		},
		StartedAt:  time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC),
		EndedAt:    time.Date(2025, 3, 10, 15, 8, 0, 0, time.UTC),
		Reason:     "completed",
		Transcript: transcript,
	}
}

func TestExtract_StructuredPathWins(t *testing.T) {
	c := &stubCompleter{response: `{
		"authorization_status": "approved",
		"authorization_number": "AUTH-991",
		"reference_number": "REF-100",
		"representative_name": "Maria Lopez",
		"turnaround_days": 5,
		"valid_from_date": "2025-03-10",
		"valid_to_date": "2025-06-10",
		"next_steps": ["Schedule the procedure"]
	}`}
	call := completedCall(
		"Hello, calling about a prior authorization.",
		"This is Maria Lopez. That request is approved, authorization number AUTH-991.",
	)

	draft := New(c).Extract(context.Background(), call)

	assert.Equal(t, record.StatusApproved, draft.Authorization.Status)
	assert.Equal(t, "AUTH-991", draft.Authorization.AuthorizationNumber)
	assert.Equal(t, "REF-100", draft.Authorization.ReferenceNumber)
	assert.Equal(t, "Maria Lopez", draft.Representative.Name)
	assert.Equal(t, 5, draft.Timeline.TurnaroundDays)
	require.NotNil(t, draft.Authorization.ValidFrom)
	require.NotNil(t, draft.Authorization.ValidTo)
	assert.Equal(t, []string{"Schedule the procedure"}, draft.NextStepsMentioned)

	assert.Equal(t, record.ProvenanceExtracted, draft.Provenance["authorization.status"])
	assert.Equal(t, record.ProvenanceExtracted, draft.Provenance["authorization.authorization_number"])
	// Pre-call facts stay marked as inferred even when the transcript
	// mentions them too.
	assert.Equal(t, record.ProvenanceInferred, draft.Provenance["patient.name"])
	assert.Equal(t, "John Smith", draft.Patient.Name)

	require.NotNil(t, draft.Timeline.ExpectedDecisionDate)
	assert.Equal(t, call.EndedAt.AddDate(0, 0, 5), *draft.Timeline.ExpectedDecisionDate)
}

func TestExtract_FallbackFillsGapsWhenModelFails(t *testing.T) {
	c := &stubCompleter{err: errors.New("provider down")}
	call := completedCall(
		"Hello, calling to check on a prior authorization.",
		"Hi, this is Sarah Johnson. Your reference number is REF-2024-001. The request is approved.",
		"Great, how long until we receive written confirmation?",
		"Within 5 business days. You can fax records to 555-123-4567 if anything else is needed.",
	)

	draft := New(c).Extract(context.Background(), call)

	assert.Equal(t, record.StatusApproved, draft.Authorization.Status)
	assert.Equal(t, "REF-2024-001", draft.Authorization.ReferenceNumber)
	assert.Equal(t, "Sarah Johnson", draft.Representative.Name)
	assert.Equal(t, 5, draft.Timeline.TurnaroundDays)
	assert.Equal(t, "555-123-4567", draft.Documentation.FaxNumber)
	assert.Equal(t, "fax", draft.Documentation.SubmissionMethod)

	assert.Equal(t, record.ProvenanceFallback, draft.Provenance["authorization.status"])
	assert.Equal(t, record.ProvenanceFallback, draft.Provenance["authorization.reference_number"])
}

func TestExtract_FallbackDoesNotOverwriteStructuredFields(t *testing.T) {
	// The model reports a rep name; the regex path would match a different
	// candidate. The structured value must survive.
	c := &stubCompleter{response: `{"authorization_status":"pending","representative_name":"Alice Wong"}`}
	call := completedCall(
		"Hello.",
		"This is Bob Miller, the request is pending review.",
	)

	draft := New(c).Extract(context.Background(), call)

	assert.Equal(t, "Alice Wong", draft.Representative.Name)
	assert.Equal(t, record.StatusPending, draft.Authorization.Status)
	assert.Equal(t, record.ProvenanceExtracted, draft.Provenance["representative.name"])
}

func TestExtract_RepairsTruncatedModelOutput(t *testing.T) {
	c := &stubCompleter{response: `Here is the extraction:
{"authorization_status":"denied","notes":"missing clinical documentation"`}
	call := completedCall("Hello.", "That request was denied, documentation was missing.")

	draft := New(c).Extract(context.Background(), call)

	assert.Equal(t, record.StatusDenied, draft.Authorization.Status)
	assert.Equal(t, "missing clinical documentation", draft.Authorization.Notes)
}

func TestExtract_EmptyTranscriptStillProducesDraft(t *testing.T) {
	c := &stubCompleter{response: `{}`}
	call := completedCall()
	call.Reason = "transport failure"

	draft := New(c).Extract(context.Background(), call)

	assert.Zero(t, c.calls, "no model call for an empty transcript")
	assert.Equal(t, "call-77", draft.CallID)
	assert.Equal(t, record.StatusUnknown, draft.Authorization.Status)
	assert.Equal(t, "John Smith", draft.Patient.Name)
	assert.Equal(t, record.ProvenanceInferred, draft.Provenance["authorization.status"])
}

func TestParseEntityJSON_RejectsNonJSON(t *testing.T) {
	_, err := parseEntityJSON("I could not find anything useful.")
	require.Error(t, err)
}

func TestPatternStrategy_DenialResolutionKeywords(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"overturned_beats_appeal", "the denial has been overturned, no appeal is needed", "overturned"},
		{"upheld", "after review the denial was upheld", "upheld"},
		{"appeal_required", "you will need to file an appeal with supporting records", "appeal_required"},
		{"resubmit_required", "please correct the modifier and resubmit the claim", "resubmit_required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ents, err := patternStrategy{}.Extract(context.Background(), tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ents.Str(FieldDenialResolution))
		})
	}
}

func TestExtract_OverturnedDenialIsNotRecordedAsDenied(t *testing.T) {
	c := &stubCompleter{err: errors.New("provider down")}
	call := completedCall(
		"Hello, calling about denied claim CLM-555.",
		"This is Maria Lopez. Good news, the denial has been overturned and the claim will be reprocessed within 14 days. Your reference number is REF-881.",
	)
	call.Facts.Purpose = record.PurposeDenialManagement
	call.Facts.ClaimNumber = "CLM-555"

	draft := New(c).Extract(context.Background(), call)

	assert.Equal(t, record.ResolutionOverturned, draft.Denial.Resolution)
	assert.Equal(t, record.ProvenanceFallback, draft.Provenance["denial.resolution"])
	// The denial vocabulary on the call must not read as a denied decision.
	assert.NotEqual(t, record.StatusDenied, draft.Authorization.Status)
	assert.Equal(t, record.StatusUnknown, draft.Authorization.Status)
	assert.Equal(t, 14, draft.Timeline.TurnaroundDays)
	assert.Equal(t, "REF-881", draft.Authorization.ReferenceNumber)
}

func TestExtract_ResolutionVocabularyIgnoredOutsideDenialCalls(t *testing.T) {
	c := &stubCompleter{err: errors.New("provider down")}
	call := completedCall(
		"Hello, calling about a prior authorization.",
		"That request is approved, you may need to resubmit the form if anything changes.",
	)

	draft := New(c).Extract(context.Background(), call)

	assert.Equal(t, record.StatusApproved, draft.Authorization.Status)
	assert.Empty(t, draft.Denial.Resolution)
}

func TestPatternStrategy_StatusPrecedence(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"peer_to_peer_beats_denied", "the denial stands unless you schedule a peer-to-peer review", "peer_to_peer_required"},
		{"additional_info_beats_pending", "it is pending until we receive additional documentation", "additional_info_required"},
		{"approved", "good news, the authorization is approved", "approved"},
		{"unknown", "please hold while I look that up", "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ents, err := patternStrategy{}.Extract(context.Background(), tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ents.Str(FieldStatus))
		})
	}
}
