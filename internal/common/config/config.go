// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Wizard        WizardConfig        `mapstructure:"wizard"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Voice         VoiceConfig         `mapstructure:"voice"`
	Location      LocationConfig      `mapstructure:"location"`
	Integrations  IntegrationConfig   `mapstructure:"integrations"`
	APIs          APIsConfig          `mapstructure:"apis"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Notifications NotificationConfig  `mapstructure:"notifications"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimit      int      `mapstructure:"rate_limit"` // requests per minute per IP
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
	ShutdownGrace  int      `mapstructure:"shutdown_grace"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// ElasticsearchConfig is optional; leads are only indexed when an address is set.
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// Enabled reports whether lead indexing is configured.
func (e ElasticsearchConfig) Enabled() bool {
	return len(e.Addresses) > 0
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Wizard / Pipeline ---

// WizardConfig controls the per-session form state machine.
type WizardConfig struct {
	KeyPrefix        string `mapstructure:"key_prefix"`
	SessionTTL       int    `mapstructure:"session_ttl"`      // seconds, 0 keeps keys forever
	NotificationTTL  int    `mapstructure:"notification_ttl"` // milliseconds
	StrictNavigation bool   `mapstructure:"strict_navigation"`
	MaxLiveSessions  int    `mapstructure:"max_live_sessions"`
}

// PipelineConfig controls the submission orchestrator.
type PipelineConfig struct {
	ContinueOnScoringFailure bool `mapstructure:"continue_on_scoring_failure"`
}

// VoiceConfig controls server-side capture of voice notes.
type VoiceConfig struct {
	Enabled  bool  `mapstructure:"enabled"`
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// LocationConfig controls the property location lookup.
type LocationConfig struct {
	Region   string `mapstructure:"region"`
	CacheTTL int    `mapstructure:"cache_ttl"` // seconds
}

// --- Specific Configuration Sections ---

// IntegrationConfig holds settings for e-mail, SMS and WhatsApp providers.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`

	SendGrid struct {
		Enabled   bool   `mapstructure:"enabled"`
		APIKey    string `mapstructure:"api_key"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"sendgrid"`

	Twilio struct {
		Enabled    bool   `mapstructure:"enabled"`
		AccountSID string `mapstructure:"account_sid"`
		AuthToken  string `mapstructure:"auth_token"`
		FromNumber string `mapstructure:"from_number"`
	} `mapstructure:"twilio"`
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	GenAI struct {
		APIKey  string `mapstructure:"api_key"`
		Model   string `mapstructure:"model"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"genai"`
}

// NotificationConfig holds settings for the brokerage notification stage.
type NotificationConfig struct {
	Email struct {
		Enabled      bool   `mapstructure:"enabled"`
		Provider     string `mapstructure:"provider"` // "ses" or "sendgrid"
		BrokerageTo  string `mapstructure:"brokerage_to"`
		SendCustomer bool   `mapstructure:"send_customer"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled bool   `mapstructure:"enabled"`
		StaffTo string `mapstructure:"staff_to"`
	} `mapstructure:"sms"`
	WhatsApp struct {
		Enabled     bool   `mapstructure:"enabled"`
		StaffNumber string `mapstructure:"staff_number"`
	} `mapstructure:"whatsapp"`
	Webhook struct {
		URL     string `mapstructure:"url"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"webhook"`
	BrandName      string `mapstructure:"brand_name"`
	DefaultCountry string `mapstructure:"default_country"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ObservabilityConfig holds metrics and tracing settings.
type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
