// internal/wizard/validators.go
package wizard

import (
	"strings"

	"lead-intake/internal/models"
)

// Field keys reported by FieldIssues. They match the profile JSON names.
const (
	FieldFullName           = "fullName"
	FieldEmail              = "email"
	FieldPhone              = "phone"
	FieldPropertyIdentifier = "propertyIdentifier"
	FieldFamilyIncome       = "familyMonthlyIncome"
	FieldFinancingAmount    = "financingAmount"
	FieldDocument           = "document"
	FieldProofOfIncome      = "hasProofOfIncome"
	FieldAcceptedTerms      = "hasAcceptedTerms"
)

const minPhoneDigits = 10

func ValidateIdentity(p models.CustomerProfile) bool {
	return len(identityIssues(p)) == 0
}

func ValidatePropertyFinancial(p models.CustomerProfile) bool {
	return len(propertyFinancialIssues(p)) == 0
}

// ValidateVerification needs the whole session because the document is not
// part of the profile.
func ValidateVerification(s models.WizardSession) bool {
	return len(verificationIssues(s)) == 0
}

// CanAdvance reports whether the current step may move forward. The scoring
// and result steps never advance by navigation.
func CanAdvance(s models.WizardSession) bool {
	switch s.Step {
	case models.StepIdentity:
		return ValidateIdentity(s.Profile)
	case models.StepPropertyFinancial:
		return ValidatePropertyFinancial(s.Profile)
	case models.StepVerification:
		return ValidateVerification(s)
	}
	return false
}

// FieldIssues lists the fields that block the current step, empty when it
// may advance or when the step has no form.
func FieldIssues(s models.WizardSession) []string {
	var issues []string
	switch s.Step {
	case models.StepIdentity:
		issues = identityIssues(s.Profile)
	case models.StepPropertyFinancial:
		issues = propertyFinancialIssues(s.Profile)
	case models.StepVerification:
		issues = verificationIssues(s)
	}
	if issues == nil {
		return []string{}
	}
	return issues
}

func identityIssues(p models.CustomerProfile) []string {
	var issues []string
	if strings.TrimSpace(p.FullName) == "" {
		issues = append(issues, FieldFullName)
	}
	if !strings.Contains(p.Email, "@") {
		issues = append(issues, FieldEmail)
	}
	if len(p.PhoneDigits()) < minPhoneDigits {
		issues = append(issues, FieldPhone)
	}
	return issues
}

func propertyFinancialIssues(p models.CustomerProfile) []string {
	var issues []string
	if strings.TrimSpace(p.PropertyIdentifier) == "" {
		issues = append(issues, FieldPropertyIdentifier)
	}
	if strings.TrimSpace(p.FamilyMonthlyIncome) == "" {
		issues = append(issues, FieldFamilyIncome)
	}

	switch plan := p.Plan().(type) {
	case models.FinancingPlan:
		if strings.TrimSpace(plan.FinancingAmount) == "" {
			issues = append(issues, FieldFinancingAmount)
		}
	case models.TradeInPlan:
		for _, f := range plan.Fields() {
			if strings.TrimSpace(f.Value) == "" {
				issues = append(issues, f.Key)
			}
		}
	case models.CashPlan:
	}
	return issues
}

func verificationIssues(s models.WizardSession) []string {
	var issues []string
	if !s.HasDocument() {
		issues = append(issues, FieldDocument)
	}
	if !s.Profile.HasProofOfIncome {
		issues = append(issues, FieldProofOfIncome)
	}
	if !s.Profile.HasAcceptedTerms {
		issues = append(issues, FieldAcceptedTerms)
	}
	return issues
}
