// internal/integrations/notification/models.go
package notification

import "lead-intake/internal/models"

// LeadMessage is the data every notification template renders.
type LeadMessage struct {
	Brand          string
	RecordID       string
	Profile        models.CustomerProfile
	Category       string
	Payment        string
	PaymentDetails []models.KeyValue
	Score          *models.ScoreResult
	Recommendation string
	PhoneE164      string
	CustomerWaURL  string
}

// WebhookPayload is posted to the optional CRM webhook.
type WebhookPayload struct {
	Event              string   `json:"event"`
	RecordID           string   `json:"recordId"`
	FullName           string   `json:"fullName"`
	Email              string   `json:"email"`
	Phone              string   `json:"phone"`
	PropertyIdentifier string   `json:"propertyIdentifier"`
	PropertyOfInterest string   `json:"propertyOfInterest"`
	PaymentMethod      string   `json:"paymentMethod"`
	Score              *int     `json:"score,omitempty"`
	Recommendation     string   `json:"recommendation,omitempty"`
	NextSteps          []string `json:"nextSteps,omitempty"`
	VisitSlots         []string `json:"visitSlots"`
}
