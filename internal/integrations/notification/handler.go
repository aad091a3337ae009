// internal/integrations/notification/handler.go
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lead-intake/internal/common/logger"
	"lead-intake/internal/common/metrics"
	"lead-intake/internal/models"
)

const Component = "lead-notification"

var ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")

// Channels groups the optional senders. A nil channel is skipped.
type Channels struct {
	Mailer   Mailer
	SMS      SMSSender
	WhatsApp WhatsAppSender
	Webhook  Webhook
}

type Handler struct {
	config   *Config
	channels Channels
	logger   logger.Logger
}

func NewHandler(config *Config, channels Channels, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	return &Handler{
		config:   config,
		channels: channels,
		logger:   log.WithFields(map[string]interface{}{"component": Component}),
	}
}

// Notify tells the brokerage about a new lead and returns a wa.me link the
// customer can use to reach staff directly. Only the brokerage e-mail is
// required to succeed; every other channel is best effort.
func (h *Handler) Notify(ctx context.Context, profile models.CustomerProfile, score *models.ScoreResult, recordID string) (string, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	msg := h.buildMessage(profile, score, recordID)
	staffText := StaffText(msg)

	if err := h.sendBrokerageEmail(ctx, msg); err != nil {
		return "", err
	}

	h.sendCustomerEmail(ctx, msg)
	h.sendSMS(ctx, msg)
	h.sendWhatsApp(ctx, staffText)
	h.postWebhook(ctx, msg)

	if h.config.StaffWhatsApp == "" {
		return "", nil
	}
	return DeepLink(h.config.StaffWhatsApp, staffText), nil
}

func (h *Handler) buildMessage(p models.CustomerProfile, score *models.ScoreResult, recordID string) LeadMessage {
	msg := LeadMessage{
		Brand:    h.config.BrandName,
		RecordID: recordID,
		Profile:  p,
		Category: p.PropertyOfInterest.Label(),
		Payment:  p.PaymentMethod.Label(),
		Score:    score,
	}
	if score != nil {
		msg.Recommendation = score.Recommendation.Label()
	}

	switch plan := p.Plan().(type) {
	case models.FinancingPlan:
		msg.PaymentDetails = []models.KeyValue{
			{Key: "Amount to finance", Value: plan.FinancingAmount},
			{Key: "Pre-approved credit", Value: string(plan.HasPreApprovedCredit)},
			{Key: "Institution", Value: plan.FinancialInstitution},
		}
	case models.TradeInPlan:
		msg.PaymentDetails = []models.KeyValue{
			{Key: "Trade-in value", Value: plan.TradeInPropertyValue},
			{Key: "Trade-in type", Value: plan.TradeInType},
			{Key: "Bedrooms", Value: plan.TradeInBedrooms},
			{Key: "Size", Value: plan.TradeInSize},
			{Key: "Neighborhood", Value: plan.TradeInNeighborhood},
			{Key: "Address", Value: plan.TradeInAddress},
		}
	}

	if e164, err := E164(p.Phone, h.config.DefaultRegion); err == nil {
		msg.PhoneE164 = e164
		msg.CustomerWaURL = "https://wa.me/" + strings.TrimPrefix(e164, "+")
	} else {
		h.logger.Debug("customer phone not normalised", map[string]interface{}{"error": err.Error()})
	}
	return msg
}

func (h *Handler) sendBrokerageEmail(ctx context.Context, msg LeadMessage) error {
	if !h.config.EmailEnabled || h.channels.Mailer == nil || h.config.BrokerageEmail == "" {
		return nil
	}
	html, err := render(brokerageTemplate, msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationSendFailed, err)
	}
	subject := fmt.Sprintf("New lead: %s - %s", msg.Profile.FullName, msg.Profile.PropertyIdentifier)
	if err := h.channels.Mailer.SendHTML(ctx, []string{h.config.BrokerageEmail}, subject, html, StaffText(msg)); err != nil {
		h.count("email_brokerage", err)
		return fmt.Errorf("%w: brokerage email: %v", ErrNotificationSendFailed, err)
	}
	h.count("email_brokerage", nil)
	return nil
}

func (h *Handler) sendCustomerEmail(ctx context.Context, msg LeadMessage) {
	if !h.config.EmailEnabled || !h.config.SendCustomerEmail || h.channels.Mailer == nil || msg.Profile.Email == "" {
		return
	}
	html, err := render(customerTemplate, msg)
	if err == nil {
		subject := fmt.Sprintf("%s - visit request received", msg.Brand)
		text := fmt.Sprintf("Hello, %s! We received your visit request for %s. Our team will contact you to confirm the date and time.",
			msg.Profile.FullName, msg.Profile.PropertyIdentifier)
		err = h.channels.Mailer.SendHTML(ctx, []string{msg.Profile.Email}, subject, html, text)
	}
	h.count("email_customer", err)
	if err != nil {
		h.logger.Warn("customer email failed", map[string]interface{}{"error": err.Error(), "recordId": msg.RecordID})
	}
}

func (h *Handler) sendSMS(ctx context.Context, msg LeadMessage) {
	if !h.config.SMSEnabled || h.channels.SMS == nil || h.config.StaffSMSTo == "" {
		return
	}
	to, err := E164(h.config.StaffSMSTo, h.config.DefaultRegion)
	if err == nil {
		err = h.channels.SMS.SendSMS(ctx, to, SMSText(msg))
	}
	h.count("sms", err)
	if err != nil {
		h.logger.Warn("staff sms failed", map[string]interface{}{"error": err.Error(), "recordId": msg.RecordID})
	}
}

func (h *Handler) sendWhatsApp(ctx context.Context, text string) {
	if !h.config.WhatsAppEnabled || h.channels.WhatsApp == nil || h.config.StaffWhatsApp == "" {
		return
	}
	err := h.channels.WhatsApp.SendWhatsApp(ctx, h.config.StaffWhatsApp, text)
	h.count("whatsapp", err)
	if err != nil {
		h.logger.Warn("staff whatsapp failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Handler) postWebhook(ctx context.Context, msg LeadMessage) {
	if h.config.WebhookURL == "" || h.channels.Webhook == nil {
		return
	}
	p := msg.Profile
	payload := WebhookPayload{
		Event:              "lead.created",
		RecordID:           msg.RecordID,
		FullName:           p.FullName,
		Email:              p.Email,
		Phone:              msg.PhoneE164,
		PropertyIdentifier: p.PropertyIdentifier,
		PropertyOfInterest: string(p.PropertyOfInterest),
		PaymentMethod:      string(p.PaymentMethod),
		VisitSlots: []string{
			strings.TrimSpace(p.VisitDate1 + " " + p.VisitTime1),
			strings.TrimSpace(p.VisitDate2 + " " + p.VisitTime2),
		},
	}
	if payload.Phone == "" {
		payload.Phone = p.Phone
	}
	if msg.Score != nil {
		s := msg.Score.Score
		payload.Score = &s
		payload.Recommendation = string(msg.Score.Recommendation)
		payload.NextSteps = msg.Score.NextSteps
	}

	err := h.channels.Webhook.PostJSON(ctx, h.config.WebhookURL, payload)
	h.count("webhook", err)
	if err != nil {
		h.logger.Warn("lead webhook failed", map[string]interface{}{"error": err.Error(), "recordId": msg.RecordID})
	}
}

func (h *Handler) count(channel string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	metrics.NotificationsSent.WithLabelValues(channel, status).Inc()
}
