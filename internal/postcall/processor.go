package postcall

import (
	"context"
	"log"
	"time"

	"github.com/mrtheegala/Outbound-GenVoice/internal/classify"
	"github.com/mrtheegala/Outbound-GenVoice/internal/extract"
	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
	"github.com/mrtheegala/Outbound-GenVoice/internal/validate"
)

// Store persists finished outcome records.
type Store interface {
	Save(ctx context.Context, rec record.OutcomeRecord) error
}

// Notifier tells billing staff about a finished record.
type Notifier interface {
	Notify(ctx context.Context, rec record.OutcomeRecord) error
}

// Processor runs the post-call pipeline: extraction, validation,
// classification, then persistence and notification. Every finished call
// yields a record, however little the call produced.
type Processor struct {
	extractor *extract.Extractor
	validator *validate.Validator
	store     Store
	notifier  Notifier
	timeout   time.Duration
}

func NewProcessor(ex *extract.Extractor, v *validate.Validator, store Store, notifier Notifier) *Processor {
	return &Processor{
		extractor: ex,
		validator: v,
		store:     store,
		notifier:  notifier,
		timeout:   60 * time.Second,
	}
}

// Process builds the outcome record for a completed call. Collaborator
// failures are logged, never propagated: the record is returned regardless.
func (p *Processor) Process(ctx context.Context, call record.CompletedCall) record.OutcomeRecord {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()
	draft := p.extractor.Extract(ctx, call)
	validation := p.validator.Validate(draft)
	category := classify.Classify(draft, validation)

	rec := record.OutcomeRecord{
		CallID:            call.ID,
		Purpose:           call.Facts.Purpose,
		StartedAt:         call.StartedAt,
		EndedAt:           call.EndedAt,
		TerminationReason: call.Reason,
		TurnCount:         call.TurnCount,
		Draft:             draft,
		Validation:        validation,
		Category:          category,
		NextSteps:         classify.NextSteps(draft, validation, category),
		Transcript:        call.Transcript,
	}

	log.Printf("[postcall] call=%s category=%s blocking=%d missing=%d took=%s",
		call.ID, category, len(validation.Blocking()), len(validation.MissingFields), time.Since(started).Round(time.Millisecond))

	if p.store != nil {
		if err := p.store.Save(ctx, rec); err != nil {
			log.Printf("[postcall] call=%s persist failed: %v", call.ID, err)
		}
	}
	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, rec); err != nil {
			log.Printf("[postcall] call=%s notify failed: %v", call.ID, err)
		}
	}
	return rec
}
