package extract

import (
	"context"
	"strconv"
	"strings"
)

// Entity field keys shared by both extraction strategies. The fixed schema
// is what keeps the two paths composable.
const (
	FieldStatus             = "authorization_status"
	FieldReferenceNumber    = "reference_number"
	FieldAuthNumber         = "authorization_number"
	FieldRepName            = "representative_name"
	FieldRepID              = "representative_id"
	FieldRepPhone           = "representative_phone"
	FieldTurnaroundDays     = "turnaround_days"
	FieldDocsRequired       = "documentation_required"
	FieldSubmissionMethod   = "submission_method"
	FieldFaxNumber          = "fax_number"
	FieldPortalURL          = "portal_url"
	FieldSubmissionDeadline = "submission_deadline"
	FieldExpedited          = "expedited_requested"
	FieldValidFrom          = "valid_from_date"
	FieldValidTo            = "valid_to_date"
	FieldNextSteps          = "next_steps"
	FieldNotes              = "notes"

	// Denial-management calls only.
	FieldDenialResolution = "denial_resolution"
	FieldDenialReason     = "denial_detailed_reason"
	FieldAppealDeadline   = "appeal_deadline"
)

// Entities is the raw keyed extraction output of one strategy.
type Entities map[string]any

// Strategy populates entities from a finished-call transcript. Strategies
// are independently testable with fixed transcripts.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, transcript string) (Entities, error)
}

// Str returns the trimmed string value for key, "" when absent or not a string.
func (e Entities) Str(key string) string {
	v, ok := e[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// Int returns the integer value for key, tolerating JSON numbers and
// numeric strings. Zero when absent or malformed.
func (e Entities) Int(key string) int {
	switch v := e[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 0
}

// Bool returns the boolean value for key, tolerating "yes"/"true" strings.
func (e Entities) Bool(key string) bool {
	switch v := e[key].(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "yes" || s == "true"
	}
	return false
}

// Strs returns the string-slice value for key, tolerating []any.
func (e Entities) Strs(key string) []string {
	switch v := e[key].(type) {
	case []string:
		return v
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}
