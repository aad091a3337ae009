// internal/integrations/notification/channels.go
package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Mailer sends one HTML e-mail. *aws.SESClient satisfies it.
type Mailer interface {
	SendHTML(ctx context.Context, to []string, subject, html, text string) error
}

// SMSSender is satisfied by *aws.SNSClient.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, to, body string) error
}

// Webhook is satisfied by *http.Client from internal/common/http.
type Webhook interface {
	PostJSON(ctx context.Context, url string, body interface{}) error
}

// ==========================
// SendGrid
// ==========================

type sendGridAPI interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

var _ sendGridAPI = (*sendgrid.Client)(nil)

type SendGridMailer struct {
	client sendGridAPI
	from   *mail.Email
}

func NewSendGridMailer(apiKey, from string) (*SendGridMailer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("sendgrid api key is empty")
	}
	return newSendGridMailer(sendgrid.NewSendClient(apiKey), from), nil
}

func newSendGridMailer(client sendGridAPI, from string) *SendGridMailer {
	return &SendGridMailer{client: client, from: mail.NewEmail("", strings.TrimSpace(from))}
}

func (s *SendGridMailer) SendHTML(_ context.Context, to []string, subject, html, text string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}
	email := mail.NewSingleEmail(s.from, subject, mail.NewEmail("", to[0]), text, html)
	if len(to) > 1 {
		p := email.Personalizations[0]
		for _, addr := range to[1:] {
			p.AddTos(mail.NewEmail("", addr))
		}
	}

	resp, err := s.client.Send(email)
	if err != nil {
		return fmt.Errorf("sending SendGrid email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// ==========================
// Twilio WhatsApp
// ==========================

type twilioMessageAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioWhatsApp struct {
	api  twilioMessageAPI
	from string
}

func NewTwilioWhatsApp(accountSID, authToken, fromNumber string) (*TwilioWhatsApp, error) {
	if strings.TrimSpace(accountSID) == "" || strings.TrimSpace(authToken) == "" {
		return nil, fmt.Errorf("twilio credentials are empty")
	}
	if strings.TrimSpace(fromNumber) == "" {
		return nil, fmt.Errorf("twilio fromNumber is empty")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioWhatsApp{api: client.Api, from: fromNumber}, nil
}

func (w *TwilioWhatsApp) SendWhatsApp(_ context.Context, to, body string) error {
	toWA := whatsAppAddress(to)
	fromWA := whatsAppAddress(w.from)
	params := &twilioApi.CreateMessageParams{To: &toWA, From: &fromWA}
	params.SetBody(body)

	resp, err := w.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("sending Twilio WhatsApp message: %w", err)
	}
	if resp != nil && resp.ErrorCode != nil {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
	}
	return nil
}

func whatsAppAddress(n string) string {
	n = strings.TrimSpace(n)
	if strings.HasPrefix(n, "whatsapp:") {
		return n
	}
	if !strings.HasPrefix(n, "+") {
		n = "+" + n
	}
	return "whatsapp:" + n
}

// ==========================
// Phone numbers
// ==========================

// E164 formats a phone number typed by a customer. Numbers without a country
// code are read in defaultRegion.
func E164(phone, defaultRegion string) (string, error) {
	num, err := phonenumbers.Parse(phone, defaultRegion)
	if err != nil {
		return "", fmt.Errorf("parse phone: %w", err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number %q", phone)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
