// internal/integrations/notification/config.go
package notification

import "time"

type Config struct {
	BrandName         string
	BrokerageEmail    string
	EmailEnabled      bool
	SendCustomerEmail bool
	SMSEnabled        bool
	StaffSMSTo        string
	WhatsAppEnabled   bool
	StaffWhatsApp     string // digits only, used for wa.me links
	WebhookURL        string
	DefaultRegion     string
	Timeout           time.Duration
}

func LoadConfig() *Config {
	return &Config{
		BrandName:         "Godoy Prime Realty",
		BrokerageEmail:    "contato@godoyprime.com.br",
		EmailEnabled:      true,
		SendCustomerEmail: true,
		WhatsAppEnabled:   true,
		StaffWhatsApp:     "5521997250515",
		DefaultRegion:     "BR",
		Timeout:           30 * time.Second,
	}
}
