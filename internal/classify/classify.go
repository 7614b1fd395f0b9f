package classify

import (
	"fmt"
	"strings"

	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
)

// Classify assigns the final outcome category. Blocking validation findings
// always win: a record that cannot be worked is failed_incomplete no matter
// what status was heard on the call.
func Classify(d record.DraftRecord, v record.ValidationResult) record.Category {
	if !v.IsComplete() {
		return record.CategoryFailedIncomplete
	}
	// Denial-management calls classify by resolution: an overturned denial is
	// a win even though the whole call was about a denial.
	switch d.Denial.Resolution {
	case record.ResolutionOverturned:
		return record.CategorySuccess
	case record.ResolutionUpheld:
		return record.CategoryDenied
	case record.ResolutionAppealRequired, record.ResolutionResubmitRequired, record.ResolutionPeerToPeer:
		return record.CategoryPendingAction
	}
	switch d.Authorization.Status {
	case record.StatusApproved:
		return record.CategorySuccess
	case record.StatusDenied:
		return record.CategoryDenied
	case record.StatusPending, record.StatusPeerToPeerRequired, record.StatusAdditionalInfo:
		return record.CategoryPendingAction
	}
	return record.CategoryFailedIncomplete
}

// NextSteps produces the ordered, deduplicated action list for billing staff.
// The same draft, validation and category always yield the same list.
func NextSteps(d record.DraftRecord, v record.ValidationResult, cat record.Category) []string {
	var steps []string
	add := func(s string) {
		for _, existing := range steps {
			if existing == s {
				return
			}
		}
		steps = append(steps, s)
	}

	if r := d.Denial.Resolution; r != "" && r != record.ResolutionUnknown {
		denialSteps(d, add)
	} else {
		statusSteps(d, add)
	}

	if len(v.MissingFields) > 0 {
		head := v.MissingFields
		if len(head) > 3 {
			head = head[:3]
		}
		add(fmt.Sprintf("Incomplete information, missing: %s", strings.Join(head, ", ")))
		add("Call back to obtain missing information")
	}
	if blocking := v.Blocking(); len(blocking) > 0 {
		add(fmt.Sprintf("%d blocking validation findings need attention", len(blocking)))
	}
	if cat == record.CategoryFailedIncomplete && len(steps) == 0 {
		add("Review call transcript and retry the call")
	}
	return steps
}

func statusSteps(d record.DraftRecord, add func(string)) {
	switch d.Authorization.Status {
	case record.StatusApproved:
		if n := d.Authorization.AuthorizationNumber; n != "" {
			add(fmt.Sprintf("Authorization approved, reference %s", n))
		}
		if t := d.Authorization.ValidTo; t != nil {
			add(fmt.Sprintf("Authorization valid until %s", t.Format("2006-01-02")))
		}
		add("Proceed with scheduling procedure")
		add("Update EHR/billing system with authorization number")

	case record.StatusPending, record.StatusAdditionalInfo:
		add("Authorization pending, action required")
		if docs := d.Documentation.RequiredDocuments; len(docs) > 0 {
			add(fmt.Sprintf("Submit required documents: %s", strings.Join(docs, ", ")))
		}
		if dl := d.Documentation.SubmissionDeadline; dl != nil {
			add(fmt.Sprintf("Submission deadline: %s", dl.Format("2006-01-02")))
		}
		if f := d.Documentation.FaxNumber; f != "" {
			add(fmt.Sprintf("Fax documents to %s", f))
		}
		if e := d.Timeline.ExpectedDecisionDate; e != nil {
			add(fmt.Sprintf("Expected decision by %s", e.Format("2006-01-02")))
		}
		add("Follow up if no decision received by expected date")

	case record.StatusDenied:
		add("Authorization denied, appeal required")
		add("Review denial reason with provider")
		add("Gather additional documentation for appeal")
		add("Submit formal appeal within insurance timeline")
		if n := d.Representative.Name; n != "" {
			add(fmt.Sprintf("Contact representative %s for appeal process", n))
		}

	case record.StatusPeerToPeerRequired:
		add("Peer-to-peer review required")
		add("Schedule peer-to-peer call between provider and insurance medical director")
		if p := d.Representative.Phone; p != "" {
			add(fmt.Sprintf("Call %s to schedule", p))
		}
		add("Prepare clinical documentation for review")
	}
}

func denialSteps(d record.DraftRecord, add func(string)) {
	switch d.Denial.Resolution {
	case record.ResolutionOverturned:
		add("Denial overturned, claim will be reprocessed")
		if t := d.Timeline.TurnaroundDays; t > 0 {
			add(fmt.Sprintf("Verify claim reprocessing within %d days", t))
		}
		add("Confirm corrected payment on the remittance advice")

	case record.ResolutionUpheld:
		add("Denial upheld by payer")
		add("Review denial reason with provider")
		add("Assess whether a formal appeal is viable")

	case record.ResolutionAppealRequired:
		add("Formal appeal required")
		if dl := d.Denial.AppealDeadline; dl != nil {
			add(fmt.Sprintf("File appeal before %s", dl.Format("2006-01-02")))
		}
		if docs := d.Documentation.RequiredDocuments; len(docs) > 0 {
			add(fmt.Sprintf("Submit required documents: %s", strings.Join(docs, ", ")))
		}
		if f := d.Documentation.FaxNumber; f != "" {
			add(fmt.Sprintf("Fax documents to %s", f))
		}
		add("Gather supporting documentation for appeal")

	case record.ResolutionResubmitRequired:
		add("Corrected claim resubmission required")
		if docs := d.Documentation.RequiredDocuments; len(docs) > 0 {
			add(fmt.Sprintf("Submit required documents: %s", strings.Join(docs, ", ")))
		}
		add("Correct and resubmit the claim")
		add("Track the resubmitted claim through adjudication")

	case record.ResolutionPeerToPeer:
		add("Peer-to-peer review required")
		add("Schedule peer-to-peer call between provider and insurance medical director")
		if p := d.Representative.Phone; p != "" {
			add(fmt.Sprintf("Call %s to schedule", p))
		}
		add("Prepare clinical documentation for review")
	}
}
