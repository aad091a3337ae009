// internal/integrations/persistence/config.go
package persistence

import "time"

type Config struct {
	Timeout     time.Duration
	SearchIndex string // empty disables indexing
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
