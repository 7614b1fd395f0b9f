package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// patternStrategy is the deterministic fallback: regex and keyword matching
// over the raw transcript. It never fails; it only finds less.
type patternStrategy struct{}

func (patternStrategy) Name() string { return "pattern" }

var (
	repNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)my name is ([A-Z][a-z]+ [A-Z][a-z]+)`),
		regexp.MustCompile(`(?i)this is ([A-Z][a-z]+ [A-Z][a-z]+)`),
		regexp.MustCompile(`(?i)([A-Z][a-z]+ [A-Z][a-z]+) speaking`),
		regexp.MustCompile(`(?i)I'm ([A-Z][a-z]+ [A-Z][a-z]+)`),
	}
	refNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)reference (?:number|id) is ([A-Z0-9-]+)`),
		regexp.MustCompile(`(?i)ref(?:erence)? (?:#|number)?:?\s*([A-Z0-9-]+)`),
		regexp.MustCompile(`(?i)reference:?\s*([A-Z0-9]+)`),
	}
	authNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)authorization (?:number|code) is ([A-Z0-9-]+)`),
		regexp.MustCompile(`(?i)auth (?:number|code|#):?\s*([A-Z0-9-]+)`),
		regexp.MustCompile(`(?i)approved[^.]*?([A-Z]{2,}\d+)`),
	}
	turnaroundPattern = regexp.MustCompile(`(?i)(?:within\s*)?(\d+)\s*(?:business\s*)?days?`)
	faxPattern        = regexp.MustCompile(`(?i)(?:fax|submit to)\s*(?:number\s*)?(?:is\s*)?:?\s*\(?(\d{3})\)?[-.\s]?(\d{3})[-.\s]?(\d{4})`)
	deadlinePattern   = regexp.MustCompile(`(?i)(?:deadline|due|submit(?:ted)?)\s+(?:is\s+|by\s+)?(\d{4}-\d{2}-\d{2}|\d{2}/\d{2}/\d{4}|(?:January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2},? \d{4})`)
)

var (
	approvedKeywords = []string{"approved", "authorization approved", "auth approved"}
	deniedKeywords   = []string{"denied", "not eligible", "expired", "inactive", "denial"}
	pendingKeywords  = []string{"pending", "under review", "need more info", "reviewing"}
	p2pKeywords      = []string{"peer-to-peer", "peer to peer", "medical review with"}
	moreInfoKeywords = []string{"additional information", "additional documentation", "need more documentation"}
)

// Denial-resolution keywords. Emitted alongside the authorization-status
// keywords; which taxonomy applies is decided per call purpose downstream.
var (
	overturnedKeywords = []string{"overturned", "reversed", "accepted"}
	upheldKeywords     = []string{"upheld", "maintained", "denied again"}
	appealKeywords     = []string{"file an appeal", "appeal"}
	resubmitKeywords   = []string{"resubmit", "re-submit", "resubmission"}
)

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func (patternStrategy) Extract(_ context.Context, transcript string) (Entities, error) {
	ents := Entities{}
	lower := strings.ToLower(transcript)

	if v := firstMatch(repNamePatterns, transcript); v != "" {
		ents[FieldRepName] = v
	}
	if v := firstMatch(refNumberPatterns, transcript); v != "" {
		ents[FieldReferenceNumber] = v
	}
	if v := firstMatch(authNumberPatterns, transcript); v != "" {
		ents[FieldAuthNumber] = v
	}

	// Keyword order matters: the more specific states are checked before the
	// broad approved/denied buckets they share words with.
	switch {
	case containsAny(lower, p2pKeywords):
		ents[FieldStatus] = "peer_to_peer_required"
	case containsAny(lower, moreInfoKeywords):
		ents[FieldStatus] = "additional_info_required"
	case containsAny(lower, approvedKeywords):
		ents[FieldStatus] = "approved"
	case containsAny(lower, deniedKeywords):
		ents[FieldStatus] = "denied"
	case containsAny(lower, pendingKeywords):
		ents[FieldStatus] = "pending"
	default:
		ents[FieldStatus] = "unknown"
	}

	// Favorable signals outrank action-required ones: a call that says both
	// "overturned" and "appeal" is reporting a win, not demanding an appeal.
	switch {
	case containsAny(lower, overturnedKeywords):
		ents[FieldDenialResolution] = "overturned"
	case containsAny(lower, upheldKeywords):
		ents[FieldDenialResolution] = "upheld"
	case containsAny(lower, appealKeywords):
		ents[FieldDenialResolution] = "appeal_required"
	case containsAny(lower, resubmitKeywords):
		ents[FieldDenialResolution] = "resubmit_required"
	case containsAny(lower, p2pKeywords):
		ents[FieldDenialResolution] = "peer_to_peer_required"
	}

	if m := turnaroundPattern.FindStringSubmatch(transcript); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			ents[FieldTurnaroundDays] = n
		}
	}
	if m := faxPattern.FindStringSubmatch(transcript); m != nil {
		ents[FieldFaxNumber] = m[1] + "-" + m[2] + "-" + m[3]
		ents[FieldSubmissionMethod] = "fax"
	}
	if m := deadlinePattern.FindStringSubmatch(transcript); m != nil {
		ents[FieldSubmissionDeadline] = strings.TrimSpace(m[1])
	}
	if strings.Contains(lower, "expedited") || strings.Contains(lower, "urgent review") {
		ents[FieldExpedited] = true
	}

	return ents, nil
}

var _ Strategy = patternStrategy{}
