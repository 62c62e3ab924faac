package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Server captures process-level configuration. Conference-specific data
// (country whitelist, conference days, positions) lives in the
// Conference descriptor, see conference.go.
type Server struct {
	Addr             string        `envconfig:"SUMMIT_ADDR" default:":8080"`
	DirectoryBaseURL string        `envconfig:"SUMMIT_DIRECTORY_URL" default:"https://restcountries.com/v3.1"`
	DirectoryTimeout time.Duration `envconfig:"SUMMIT_DIRECTORY_TIMEOUT" default:"10s"`

	// StoreBackend selects the persisted store: memory, badger, redis
	// or postgres.
	StoreBackend string `envconfig:"SUMMIT_STORE_BACKEND" default:"badger"`
	BadgerPath   string `envconfig:"SUMMIT_BADGER_PATH" default:"./data/summit"`
	RedisURL     string `envconfig:"SUMMIT_REDIS_URL"`
	PostgresDSN  string `envconfig:"SUMMIT_POSTGRES_DSN"`

	// ConferenceFile optionally overrides the built-in conference
	// descriptor with a yaml file.
	ConferenceFile string `envconfig:"SUMMIT_CONFERENCE_FILE"`
}

// FromEnv builds a Server config from environment variables so main
// stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		return Server{}, fmt.Errorf("process env config: %w", err)
	}
	return cfg, nil
}
