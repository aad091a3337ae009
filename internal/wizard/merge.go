// internal/wizard/merge.go
package wizard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	apperrors "lead-intake/internal/common/errors"
	"lead-intake/internal/models"
)

var mergeableKeys = map[string]struct{}{
	"fullName": {}, "email": {}, "phone": {},
	"familyMonthlyIncome": {}, "hasProofOfIncome": {},
	"propertyIdentifier": {}, "propertyOfInterest": {}, "paymentMethod": {},
	"financingAmount": {}, "hasPreApprovedCredit": {}, "financialInstitution": {},
	"tradeInPropertyValue": {}, "tradeInType": {}, "tradeInBedrooms": {},
	"tradeInSize": {}, "tradeInNeighborhood": {}, "tradeInAddress": {},
	"visitDate1": {}, "visitTime1": {}, "visitDate2": {}, "visitTime2": {},
	"hasAcceptedTerms": {},
}

// MergeFields overwrites the profile keys present in raw, a JSON object
// using the profile's own key names. Unknown keys and null values are
// skipped. If raw is not an object, or a known key holds a value of the
// wrong type, nothing is merged and the original profile is returned with
// an error. The returned keys are sorted.
func MergeFields(p models.CustomerProfile, raw []byte) (models.CustomerProfile, []string, error) {
	var partial map[string]json.RawMessage
	if err := json.Unmarshal(raw, &partial); err != nil {
		return p, nil, fmt.Errorf("%w: fields must be a JSON object: %v", apperrors.ErrInvalidRequest, err)
	}

	current, err := json.Marshal(p)
	if err != nil {
		return p, nil, fmt.Errorf("marshal profile: %w", err)
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(current, &merged); err != nil {
		return p, nil, fmt.Errorf("unmarshal profile: %w", err)
	}

	keys := make([]string, 0, len(partial))
	for k, v := range partial {
		if _, ok := mergeableKeys[k]; !ok {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			continue
		}
		merged[k] = v
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return p, keys, nil
	}

	buf, err := json.Marshal(merged)
	if err != nil {
		return p, nil, fmt.Errorf("marshal merged profile: %w", err)
	}
	var out models.CustomerProfile
	if err := json.Unmarshal(buf, &out); err != nil {
		return p, nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
	}
	if err := checkEnums(out); err != nil {
		return p, nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
	}

	sanitize(&out)
	sort.Strings(keys)
	return out, keys, nil
}

// MergeNotice is the transient message shown after a voice fill.
func MergeNotice(n int) string {
	return fmt.Sprintf("AI filled %d field(s).", n)
}

func sanitize(p *models.CustomerProfile) {
	p.Phone = p.PhoneDigits()
	p.FamilyMonthlyIncome = amountChars(p.FamilyMonthlyIncome)
	p.FinancingAmount = amountChars(p.FinancingAmount)
	p.TradeInPropertyValue = amountChars(p.TradeInPropertyValue)
}

// amountChars keeps digits and the Brazilian separators.
func amountChars(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			return r
		}
		return -1
	}, s)
}
