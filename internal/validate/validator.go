package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
)

var (
	cptPattern        = regexp.MustCompile(`^\d{5}$`)
	icd10Pattern      = regexp.MustCompile(`^[A-Z]\d{2}\.?\d{0,2}$`)
	npiPattern        = regexp.MustCompile(`^\d{10}$`)
	authNumberPattern = regexp.MustCompile(`(?i)^[A-Z0-9-]+$`)
	phoneStripper     = regexp.MustCompile(`[\s\-().]+`)
	phonePattern      = regexp.MustCompile(`^1?\d{10}$`)
)

// Validator checks a draft record for completeness, well-formed identifiers
// and business-rule consistency. It annotates, it never mutates.
type Validator struct {
	rules RuleSet
	now   func() time.Time
}

func New(rules RuleSet) *Validator {
	return &Validator{rules: rules, now: time.Now}
}

// Validate runs every rule class and returns the accumulated findings.
// The same draft always yields the same result (modulo the deadline clock).
func (v *Validator) Validate(d record.DraftRecord) record.ValidationResult {
	var res record.ValidationResult
	v.checkCompleteness(d, &res)
	v.checkFormats(d, &res)
	v.checkBusinessRules(d, &res)
	return res
}

func addFinding(res *record.ValidationResult, field string, sev record.Severity, msg string) {
	res.Findings = append(res.Findings, record.Finding{Field: field, Severity: sev, Message: msg})
}

func addMissing(res *record.ValidationResult, field string) {
	for _, f := range res.MissingFields {
		if f == field {
			return
		}
	}
	res.MissingFields = append(res.MissingFields, field)
}

func (v *Validator) checkCompleteness(d record.DraftRecord, res *record.ValidationResult) {
	// Some tracking number is the minimum a call must produce.
	if d.Authorization.ReferenceNumber == "" && d.Authorization.AuthorizationNumber == "" {
		addMissing(res, "authorization.reference_number")
		addFinding(res, "authorization.reference_number", record.SeverityBlocking,
			"no authorization or reference number obtained from call")
	}

	for _, path := range v.rules.RequiredByStatus[d.Authorization.Status] {
		if fieldPresent(d, path) {
			continue
		}
		addMissing(res, path)
		addFinding(res, path, record.SeverityAdvisory,
			fmt.Sprintf("missing required field for status %s: %s", d.Authorization.Status, path))
	}

	for _, path := range v.rules.RequiredByResolution[d.Denial.Resolution] {
		if fieldPresent(d, path) {
			continue
		}
		addMissing(res, path)
		addFinding(res, path, record.SeverityAdvisory,
			fmt.Sprintf("missing required field for denial resolution %s: %s", d.Denial.Resolution, path))
	}

	if d.Representative.Name == "" {
		addMissing(res, "representative.name")
		addFinding(res, "representative.name", record.SeverityAdvisory,
			"insurance representative name not captured")
	}

	if d.Authorization.Status == record.StatusPending || d.Authorization.Status == record.StatusAdditionalInfo {
		if len(d.Documentation.RequiredDocuments) == 0 {
			addMissing(res, "documentation.required_documents")
			addFinding(res, "documentation.required_documents", record.SeverityBlocking,
				"authorization pending but no documentation requirements captured")
		}
		// A pending decision with no deadline and no stated turnaround
		// cannot be worked; treat it as blocking.
		if d.Documentation.SubmissionDeadline == nil && d.Timeline.TurnaroundDays == 0 {
			addMissing(res, "documentation.submission_deadline")
			addFinding(res, "documentation.submission_deadline", record.SeverityBlocking,
				"no submission deadline or decision timeframe captured")
		}
	}
}

func (v *Validator) checkFormats(d record.DraftRecord, res *record.ValidationResult) {
	if c := d.Procedure.CPTCode; c != "" && !cptPattern.MatchString(c) {
		addFinding(res, "procedure.cpt_code", record.SeverityBlocking,
			fmt.Sprintf("invalid CPT code format: %s", c))
	}
	if c := d.Procedure.ICDCode; c != "" && !icd10Pattern.MatchString(c) {
		addFinding(res, "procedure.icd_code", record.SeverityBlocking,
			fmt.Sprintf("invalid ICD-10 code format: %s", c))
	}
	if n := d.Provider.NPI; n != "" && !npiPattern.MatchString(n) {
		addFinding(res, "provider.npi", record.SeverityBlocking,
			fmt.Sprintf("invalid NPI format: %s", n))
	}
	if f := d.Documentation.FaxNumber; f != "" && !validPhone(f) {
		addFinding(res, "documentation.fax_number", record.SeverityAdvisory,
			fmt.Sprintf("invalid fax number format: %s", f))
	}
	if p := d.Representative.Phone; p != "" && !validPhone(p) {
		addFinding(res, "representative.phone", record.SeverityAdvisory,
			fmt.Sprintf("invalid callback number format: %s", p))
	}
	if a := d.Authorization.AuthorizationNumber; a != "" && !authNumberPattern.MatchString(a) {
		addFinding(res, "authorization.authorization_number", record.SeverityAdvisory,
			fmt.Sprintf("unusual authorization number format: %s", a))
	}
}

func (v *Validator) checkBusinessRules(d record.DraftRecord, res *record.ValidationResult) {
	auth := d.Authorization
	if auth.ValidFrom != nil && auth.ValidTo != nil {
		days := int(auth.ValidTo.Sub(*auth.ValidFrom).Hours() / 24)
		switch {
		case days < 0:
			addFinding(res, "authorization.valid_to", record.SeverityBlocking,
				"authorization end date is before start date")
		case days < v.rules.MinValidityDays:
			addFinding(res, "authorization.valid_to", record.SeverityAdvisory,
				fmt.Sprintf("short authorization validity period: %d days", days))
		case days > v.rules.MaxValidityDays:
			addFinding(res, "authorization.valid_to", record.SeverityAdvisory,
				fmt.Sprintf("unusually long authorization validity period: %d days", days))
		}
	}

	if dl := d.Documentation.SubmissionDeadline; dl != nil {
		if pd := d.Procedure.ProposedDate; pd != nil && !dl.Before(*pd) {
			addFinding(res, "documentation.submission_deadline", record.SeverityBlocking,
				"documentation deadline is on or after procedure date")
		}
		today := v.now()
		if dl.Before(today.Truncate(24 * time.Hour)) {
			addFinding(res, "documentation.submission_deadline", record.SeverityBlocking,
				fmt.Sprintf("documentation deadline has already passed: %s", dl.Format("2006-01-02")))
		} else if dl.Sub(today) <= 24*time.Hour {
			addFinding(res, "documentation.submission_deadline", record.SeverityAdvisory,
				"documentation deadline is within one day")
		}
	}

	if t := d.Timeline.TurnaroundDays; t > v.rules.MaxTurnaroundDays {
		addFinding(res, "timeline.turnaround_days", record.SeverityAdvisory,
			fmt.Sprintf("very long turnaround time: %d days", t))
	}

	switch auth.Status {
	case record.StatusApproved:
		if auth.AuthorizationNumber == "" {
			addFinding(res, "authorization.authorization_number", record.SeverityBlocking,
				"authorization approved but no authorization number provided")
		}
	case record.StatusDenied:
		if auth.Notes == "" {
			addFinding(res, "authorization.notes", record.SeverityAdvisory,
				"authorization denied but no denial reason captured")
		}
	case record.StatusPeerToPeerRequired:
		if d.Representative.Phone == "" {
			addFinding(res, "representative.phone", record.SeverityBlocking,
				"peer-to-peer required but no callback number captured")
		}
	}

	switch d.Denial.Resolution {
	case record.ResolutionOverturned:
		if d.Timeline.TurnaroundDays == 0 && d.Timeline.ExpectedDecisionDate == nil {
			addFinding(res, "timeline.turnaround_days", record.SeverityAdvisory,
				"denial overturned but no reprocessing timeframe captured")
		}
	case record.ResolutionUpheld:
		if d.Denial.DetailedReason == "" && d.Authorization.Notes == "" {
			addFinding(res, "denial.detailed_reason", record.SeverityAdvisory,
				"denial upheld but no detailed reason captured")
		}
	case record.ResolutionAppealRequired:
		// An appeal nobody can date cannot be worked.
		if d.Denial.AppealDeadline == nil && d.Documentation.SubmissionDeadline == nil {
			addMissing(res, "denial.appeal_deadline")
			addFinding(res, "denial.appeal_deadline", record.SeverityBlocking,
				"appeal required but no appeal or submission deadline captured")
		}
	case record.ResolutionPeerToPeer:
		if d.Representative.Phone == "" {
			addFinding(res, "representative.phone", record.SeverityBlocking,
				"peer-to-peer required but no callback number captured")
		}
	}
}

// fieldPresent resolves the dotted paths used by RuleSet.RequiredByStatus.
func fieldPresent(d record.DraftRecord, path string) bool {
	switch path {
	case "authorization.reference_number":
		return d.Authorization.ReferenceNumber != "" || d.Authorization.AuthorizationNumber != ""
	case "authorization.authorization_number":
		return d.Authorization.AuthorizationNumber != ""
	case "authorization.notes":
		return d.Authorization.Notes != ""
	case "representative.name":
		return d.Representative.Name != ""
	case "representative.phone":
		return d.Representative.Phone != ""
	case "documentation.required_documents":
		return len(d.Documentation.RequiredDocuments) > 0
	case "documentation.submission_deadline":
		return d.Documentation.SubmissionDeadline != nil
	case "timeline.turnaround_days":
		return d.Timeline.TurnaroundDays > 0
	case "denial.resolution":
		return d.Denial.Resolution != "" && d.Denial.Resolution != record.ResolutionUnknown
	case "denial.detailed_reason":
		return d.Denial.DetailedReason != "" || d.Authorization.Notes != ""
	case "denial.appeal_deadline":
		return d.Denial.AppealDeadline != nil
	}
	// Unknown paths in an operator-supplied rule file fail open.
	return true
}

func validPhone(s string) bool {
	return phonePattern.MatchString(phoneStripper.ReplaceAllString(strings.TrimSpace(s), ""))
}
