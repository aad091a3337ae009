// internal/integrations/persistence/models.go
package persistence

import (
	"strings"

	"github.com/shopspring/decimal"
)

// LeadDocument is the search-index view of a stored lead.
type LeadDocument struct {
	ID                 string   `json:"id"`
	FullName           string   `json:"fullName"`
	Email              string   `json:"email"`
	Phone              string   `json:"phone"`
	PropertyIdentifier string   `json:"propertyIdentifier"`
	PropertyOfInterest string   `json:"propertyOfInterest"`
	PaymentMethod      string   `json:"paymentMethod"`
	MonthlyIncome      *float64 `json:"monthlyIncome,omitempty"`
	Score              *int     `json:"score,omitempty"`
	Recommendation     string   `json:"recommendation,omitempty"`
	HasDocument        bool     `json:"hasDocument"`
	CreatedAt          string   `json:"createdAt"`
}

// ParseAmount reads a currency amount typed in either Brazilian
// ("1.250.000,50") or plain ("1250000.50") notation. Blank or unreadable
// input yields an invalid NullDecimal so the numeric column stays NULL.
func ParseAmount(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}

	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	case strings.Count(s, ".") == 1 && len(s)-strings.Index(s, ".")-1 == 3:
		// "250.000" is a thousands separator, not three decimals
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
