package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
)

// Completer is the single-shot completion surface the structured strategy
// needs. *llm.CerebrasClient satisfies it.
type Completer interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

const extractionSystemPrompt = `You extract structured data from healthcare insurance call transcripts.
Respond with a single JSON object and nothing else. Use null for anything the transcript does not state. Never invent values.`

const extractionSchema = `{
  "authorization_status": "approved | denied | pending | peer_to_peer_required | additional_info_required | unknown",
  "reference_number": "string or null",
  "authorization_number": "string or null",
  "representative_name": "string or null",
  "representative_id": "string or null",
  "representative_phone": "string or null",
  "turnaround_days": "integer or null",
  "documentation_required": ["list of documents, or empty"],
  "submission_method": "fax | portal | mail | phone or null",
  "fax_number": "string or null",
  "portal_url": "string or null",
  "submission_deadline": "YYYY-MM-DD or null",
  "expedited_requested": "true or false",
  "valid_from_date": "YYYY-MM-DD or null",
  "valid_to_date": "YYYY-MM-DD or null",
  "denial_resolution": "overturned | upheld | appeal_required | resubmit_required | peer_to_peer_required | unknown (denial management calls only, else null)",
  "denial_detailed_reason": "specific explanation for the denial beyond the denial code, or null",
  "appeal_deadline": "YYYY-MM-DD or null",
  "next_steps": ["list of actions stated on the call, or empty"],
  "notes": "short free-text summary of anything important, or null"
}`

// llmStrategy asks the completion model for a JSON document matching the
// entity schema and parses it defensively.
type llmStrategy struct {
	completer Completer
}

func (s llmStrategy) Name() string { return "llm" }

func (s llmStrategy) Extract(ctx context.Context, transcript string) (Entities, error) {
	if s.completer == nil {
		return nil, fmt.Errorf("extract: no completer configured")
	}
	user := fmt.Sprintf("Transcript:\n%s\n\nExtract into this JSON shape:\n%s", transcript, extractionSchema)
	raw, err := s.completer.Generate(ctx, extractionSystemPrompt, user)
	if err != nil {
		return nil, err
	}
	ents, err := parseEntityJSON(raw)
	if err != nil {
		return nil, err
	}
	return ents, nil
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseEntityJSON tolerates prose around the object and a truncated tail:
// it pulls the outermost {...} span and, if decoding fails, retries with
// unbalanced braces closed.
func parseEntityJSON(raw string) (Entities, error) {
	candidate := jsonObjectPattern.FindString(raw)
	if candidate == "" {
		return nil, fmt.Errorf("extract: no JSON object in model output")
	}
	var ents Entities
	if err := json.Unmarshal([]byte(candidate), &ents); err == nil {
		return ents, nil
	}
	repaired := closeBraces(candidate)
	if err := json.Unmarshal([]byte(repaired), &ents); err != nil {
		return nil, fmt.Errorf("extract: unparseable model output: %w", err)
	}
	return ents, nil
}

// closeBraces appends the closers a truncated JSON object is missing. String
// state is tracked so braces inside values are not counted.
func closeBraces(s string) string {
	depth := 0
	inString := false
	escaped := false
	for _, r := range s {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
			}
		}
	}
	if inString {
		s += `"`
	}
	for ; depth > 0; depth-- {
		s += "}"
	}
	return s
}

var _ Strategy = llmStrategy{}
