package validate

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/mrtheegala/Outbound-GenVoice/internal/record"
)

// RuleSet is the tunable part of validation: which fields each authorization
// status demands, and the plausibility bounds. Operators can override it from
// a YAML file without a rebuild; the compiled-in defaults match payer
// practice.
type RuleSet struct {
	RequiredByStatus     map[record.AuthStatus][]string       `yaml:"required_by_status"`
	RequiredByResolution map[record.DenialResolution][]string `yaml:"required_by_resolution"`
	MinValidityDays      int                                  `yaml:"min_validity_days"`
	MaxValidityDays      int                                  `yaml:"max_validity_days"`
	MaxTurnaroundDays    int                                  `yaml:"max_turnaround_days"`
}

// DefaultRuleSet returns the built-in rules.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		RequiredByStatus: map[record.AuthStatus][]string{
			record.StatusApproved: {
				"authorization.reference_number",
				"authorization.authorization_number",
				"representative.name",
			},
			record.StatusPending: {
				"authorization.reference_number",
				"documentation.required_documents",
				"representative.name",
			},
			record.StatusAdditionalInfo: {
				"authorization.reference_number",
				"documentation.required_documents",
				"representative.name",
			},
			record.StatusDenied: {
				"authorization.reference_number",
				"representative.name",
			},
			record.StatusPeerToPeerRequired: {
				"authorization.reference_number",
				"representative.name",
				"representative.phone",
			},
		},
		RequiredByResolution: map[record.DenialResolution][]string{
			record.ResolutionOverturned: {
				"authorization.reference_number",
				"representative.name",
			},
			record.ResolutionUpheld: {
				"authorization.reference_number",
				"representative.name",
				"denial.detailed_reason",
			},
			record.ResolutionAppealRequired: {
				"authorization.reference_number",
				"documentation.required_documents",
				"representative.name",
			},
			record.ResolutionResubmitRequired: {
				"authorization.reference_number",
				"documentation.required_documents",
				"representative.name",
			},
			record.ResolutionPeerToPeer: {
				"authorization.reference_number",
				"representative.name",
				"representative.phone",
			},
		},
		MinValidityDays:   30,
		MaxValidityDays:   365,
		MaxTurnaroundDays: 30,
	}
}

// LoadRuleSet reads a YAML override on top of the defaults. Only keys present
// in the document are replaced.
func LoadRuleSet(r io.Reader) (RuleSet, error) {
	rules := DefaultRuleSet()
	data, err := io.ReadAll(r)
	if err != nil {
		return rules, fmt.Errorf("read rule set: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return DefaultRuleSet(), fmt.Errorf("parse rule set: %w", err)
	}
	if rules.RequiredByStatus == nil {
		rules.RequiredByStatus = DefaultRuleSet().RequiredByStatus
	}
	if rules.RequiredByResolution == nil {
		rules.RequiredByResolution = DefaultRuleSet().RequiredByResolution
	}
	return rules, nil
}
