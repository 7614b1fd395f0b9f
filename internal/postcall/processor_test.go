package postcall

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrtheegala/Outbound-GenVoice/internal/extract"
	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
	"github.com/mrtheegala/Outbound-GenVoice/internal/validate"
)

type failingCompleter struct{}

func (failingCompleter) Generate(context.Context, string, string) (string, error) {
	return "", errors.New("provider down")
}

type okCompleter struct{ response string }

func (c okCompleter) Generate(context.Context, string, string) (string, error) {
	return c.response, nil
}

type memStore struct {
	mu    sync.Mutex
	saved []record.OutcomeRecord
	err   error
}

func (s *memStore) Save(_ context.Context, rec record.OutcomeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, rec)
	return nil
}

type memNotifier struct {
	mu       sync.Mutex
	notified []record.OutcomeRecord
}

func (n *memNotifier) Notify(_ context.Context, rec record.OutcomeRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, rec)
	return nil
}

func processor(c extract.Completer, store Store, notifier Notifier) *Processor {
	return NewProcessor(extract.New(c), validate.New(validate.DefaultRuleSet()), store, notifier)
}

func finishedCall(reason string, lines ...string) record.CompletedCall {
	var transcript []record.Utterance
	for i, l := range lines {
		sp := record.SpeakerAgent
		if i%2 == 1 {
			sp = record.SpeakerCounterparty
		}
		transcript = append(transcript, record.Utterance{Speaker: sp, Text: l, Final: true})
	}
	return record.CompletedCall{
		ID: "call-9",
		Facts: record.CallFacts{
			Purpose:      record.PurposePriorAuth,
			PatientName:  "John Smith",
			ProviderName: "Valley Medical",
			CPTCode:      "72148",
		},
		StartedAt:  time.Now().Add(-5 * time.Minute),
		EndedAt:    time.Now(),
		Reason:     reason,
		TurnCount:  len(lines),
		Transcript: transcript,
	}
}

func TestProcess_HappyPathPersistsAndNotifies(t *testing.T) {
	c := okCompleter{response: `{
		"authorization_status": "approved",
		"authorization_number": "AUTH-55",
		"reference_number": "REF-55",
		"representative_name": "Maria Lopez"
	}`}
	store := &memStore{}
	notifier := &memNotifier{}

	rec := processor(c, store, notifier).Process(context.Background(),
		finishedCall("completed",
			"Hello, calling about a prior authorization.",
			"This is Maria Lopez, that request is approved.",
		))

	assert.Equal(t, record.CategorySuccess, rec.Category)
	assert.Equal(t, record.StatusApproved, rec.Draft.Authorization.Status)
	assert.NotEmpty(t, rec.NextSteps)
	assert.Equal(t, "completed", rec.TerminationReason)

	require.Len(t, store.saved, 1)
	assert.Equal(t, rec.CallID, store.saved[0].CallID)
	require.Len(t, notifier.notified, 1)
}

func TestProcess_EmptyTranscriptStillYieldsRecord(t *testing.T) {
	store := &memStore{}
	rec := processor(failingCompleter{}, store, nil).Process(context.Background(),
		finishedCall("transport failure"))

	assert.Equal(t, record.CategoryFailedIncomplete, rec.Category)
	assert.Equal(t, record.StatusUnknown, rec.Draft.Authorization.Status)
	assert.False(t, rec.Validation.IsComplete())
	// The pre-dial facts survive into the record even with no transcript.
	assert.Equal(t, "John Smith", rec.Draft.Patient.Name)
	require.Len(t, store.saved, 1)
}

func TestProcess_HangupPartialTranscriptUsesFallback(t *testing.T) {
	rec := processor(failingCompleter{}, nil, nil).Process(context.Background(),
		finishedCall("remote hangup",
			"Hello, calling to check on a prior authorization.",
			"This is Sarah Johnson, reference number is REF-2024-001, it is pending review.",
		))

	assert.Equal(t, "REF-2024-001", rec.Draft.Authorization.ReferenceNumber)
	assert.Equal(t, record.ProvenanceFallback, rec.Draft.Provenance["authorization.reference_number"])
	assert.Equal(t, record.StatusPending, rec.Draft.Authorization.Status)
	// Pending with no documents or deadline captured cannot be complete.
	assert.Equal(t, record.CategoryFailedIncomplete, rec.Category)
}

func TestProcess_StoreFailureDoesNotLoseTheRecord(t *testing.T) {
	store := &memStore{err: errors.New("bucket unavailable")}
	notifier := &memNotifier{}

	rec := processor(okCompleter{response: `{"authorization_status":"denied","reference_number":"REF-77","representative_name":"Lee Park","notes":"not medically necessary"}`},
		store, notifier).Process(context.Background(),
		finishedCall("completed", "Hello.", "That request was denied, not medically necessary."))

	assert.Equal(t, record.CategoryDenied, rec.Category)
	require.Len(t, notifier.notified, 1, "notification still goes out after a store failure")
}
