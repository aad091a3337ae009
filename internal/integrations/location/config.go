// internal/integrations/location/config.go
package location

import "time"

type Config struct {
	Region    string
	CacheTTL  time.Duration
	KeyPrefix string
	Timeout   time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Region:    "Barra da Tijuca, Rio de Janeiro",
		CacheTTL:  24 * time.Hour,
		KeyPrefix: "location",
		Timeout:   30 * time.Second,
	}
}
