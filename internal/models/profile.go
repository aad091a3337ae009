// internal/models/profile.go
package models

import "strings"

type PropertyCategory string

const (
	PropertyPenthouse         PropertyCategory = "penthouse"
	PropertyHouse             PropertyCategory = "house"
	PropertyStandardApartment PropertyCategory = "standard_apartment"
	PropertyLand              PropertyCategory = "land"
)

func (c PropertyCategory) Valid() bool {
	switch c {
	case PropertyPenthouse, PropertyHouse, PropertyStandardApartment, PropertyLand:
		return true
	}
	return false
}

// Label is the human-readable name used in staff messages.
func (c PropertyCategory) Label() string {
	switch c {
	case PropertyPenthouse:
		return "Penthouse"
	case PropertyHouse:
		return "House"
	case PropertyStandardApartment:
		return "Standard apartment"
	case PropertyLand:
		return "Land"
	}
	return string(c)
}

type PaymentMethod string

const (
	PaymentFinancing PaymentMethod = "financing"
	PaymentCash      PaymentMethod = "cash"
	PaymentTradeIn   PaymentMethod = "trade_in"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentFinancing, PaymentCash, PaymentTradeIn:
		return true
	}
	return false
}

func (m PaymentMethod) Label() string {
	switch m {
	case PaymentFinancing:
		return "Financing"
	case PaymentCash:
		return "Cash"
	case PaymentTradeIn:
		return "Trade-in"
	}
	return string(m)
}

type YesNo string

const (
	Yes YesNo = "yes"
	No  YesNo = "no"
)

func (y YesNo) Valid() bool { return y == Yes || y == No }

// FinancingDetails is only meaningful when PaymentMethod is financing.
type FinancingDetails struct {
	FinancingAmount      string `json:"financingAmount"`
	HasPreApprovedCredit YesNo  `json:"hasPreApprovedCredit"`
	FinancialInstitution string `json:"financialInstitution"`
}

// TradeInDetails describes the property offered as partial payment.
type TradeInDetails struct {
	TradeInPropertyValue string `json:"tradeInPropertyValue"`
	TradeInType          string `json:"tradeInType"`
	TradeInBedrooms      string `json:"tradeInBedrooms"`
	TradeInSize          string `json:"tradeInSize"`
	TradeInNeighborhood  string `json:"tradeInNeighborhood"`
	TradeInAddress       string `json:"tradeInAddress"`
}

// CustomerProfile is the aggregate edited across the wizard. Both branch
// records are kept so that toggling the payment method does not discard
// what was typed; consumers read the active branch through Plan.
type CustomerProfile struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`

	FamilyMonthlyIncome string `json:"familyMonthlyIncome"`
	HasProofOfIncome    bool   `json:"hasProofOfIncome"`

	PropertyIdentifier string           `json:"propertyIdentifier"`
	PropertyOfInterest PropertyCategory `json:"propertyOfInterest"`
	PaymentMethod      PaymentMethod    `json:"paymentMethod"`

	FinancingDetails
	TradeInDetails

	VisitDate1 string `json:"visitDate1"`
	VisitTime1 string `json:"visitTime1"`
	VisitDate2 string `json:"visitDate2"`
	VisitTime2 string `json:"visitTime2"`

	HasAcceptedTerms bool `json:"hasAcceptedTerms"`
}

// DefaultProfile returns the profile a new or restarted session starts with.
func DefaultProfile() CustomerProfile {
	return CustomerProfile{
		PropertyOfInterest: PropertyPenthouse,
		PaymentMethod:      PaymentFinancing,
		FinancingDetails: FinancingDetails{
			HasPreApprovedCredit: No,
		},
	}
}

// PaymentPlan is the active payment branch of a profile.
type PaymentPlan interface {
	Method() PaymentMethod
	isPaymentPlan()
}

type CashPlan struct{}

type FinancingPlan struct {
	FinancingDetails
}

type TradeInPlan struct {
	TradeInDetails
}

func (CashPlan) Method() PaymentMethod      { return PaymentCash }
func (FinancingPlan) Method() PaymentMethod { return PaymentFinancing }
func (TradeInPlan) Method() PaymentMethod   { return PaymentTradeIn }

func (CashPlan) isPaymentPlan()      {}
func (FinancingPlan) isPaymentPlan() {}
func (TradeInPlan) isPaymentPlan()   {}

// Plan returns only the branch selected by PaymentMethod.
func (p CustomerProfile) Plan() PaymentPlan {
	switch p.PaymentMethod {
	case PaymentFinancing:
		return FinancingPlan{FinancingDetails: p.FinancingDetails}
	case PaymentTradeIn:
		return TradeInPlan{TradeInDetails: p.TradeInDetails}
	default:
		return CashPlan{}
	}
}

// Fields returns the trade-in values keyed by their JSON names, in form order.
func (t TradeInDetails) Fields() []KeyValue {
	return []KeyValue{
		{"tradeInPropertyValue", t.TradeInPropertyValue},
		{"tradeInType", t.TradeInType},
		{"tradeInBedrooms", t.TradeInBedrooms},
		{"tradeInSize", t.TradeInSize},
		{"tradeInNeighborhood", t.TradeInNeighborhood},
		{"tradeInAddress", t.TradeInAddress},
	}
}

type KeyValue struct {
	Key   string
	Value string
}

// PhoneDigits strips everything but digits from the phone field.
func (p CustomerProfile) PhoneDigits() string {
	var b strings.Builder
	for _, r := range p.Phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Document is the uploaded identity document. It lives only in memory.
type Document struct {
	FileName    string
	ContentType string
	Data        []byte
}

func (d *Document) Size() int {
	if d == nil {
		return 0
	}
	return len(d.Data)
}
