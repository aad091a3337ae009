// internal/integrations/transcription/config.go
package transcription

import "time"

type Config struct {
	Timeout         time.Duration
	DefaultMIMEType string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         60 * time.Second,
		DefaultMIMEType: "audio/webm",
	}
}
