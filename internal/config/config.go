package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Portal configures the booking portal service. Variables are read with the
// PORTAL_ prefix, e.g. PORTAL_BACKEND_URL.
type Portal struct {
	Addr              string        `envconfig:"ADDR" default:":8080"`
	DBPath            string        `envconfig:"DB_PATH" default:"portal.db"`
	BackendURL        string        `envconfig:"BACKEND_URL" default:"http://localhost:8081"`
	BackendTimeout    time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`
	TemporalHostPort  string        `envconfig:"TEMPORAL_HOSTPORT"`
	TemporalNamespace string        `envconfig:"TEMPORAL_NAMESPACE" default:"default"`
	RefreshInterval   time.Duration `envconfig:"REFRESH_INTERVAL" default:"0s"`
}

// Reservations configures the stand-in reservation backend. Variables use
// the RESERVATIONS_ prefix.
type Reservations struct {
	Addr   string `envconfig:"ADDR" default:":8081"`
	DBPath string `envconfig:"DB_PATH" default:"reservations.db"`
	Seed   bool   `envconfig:"SEED" default:"true"`
}

// LoadPortal reads an optional .env file and then the environment.
func LoadPortal() (Portal, error) {
	_ = godotenv.Load()
	var c Portal
	if err := envconfig.Process("portal", &c); err != nil {
		return Portal{}, fmt.Errorf("load portal config: %w", err)
	}
	return c, nil
}

// LoadReservations reads an optional .env file and then the environment.
func LoadReservations() (Reservations, error) {
	_ = godotenv.Load()
	var c Reservations
	if err := envconfig.Process("reservations", &c); err != nil {
		return Reservations{}, fmt.Errorf("load reservations config: %w", err)
	}
	return c, nil
}
