package config

import (
	"os"
	"time"
)

// Portal holds the upstream government portal endpoints and browser settings.
type Portal struct {
	TaxpayerURL     string
	ProfessionalURL string
	UserAgent       string
	NavTimeout      time.Duration
	Headless        bool
}

// Proxy holds optional outbound egress settings. The server URL may embed
// credentials; explicit username/password take precedence when both are set.
type Proxy struct {
	Server   string
	Username string
	Password string
}

// Backend points at the application backend that owns profile records. When
// set, audit and profile writes go over HTTP instead of a local database.
type Backend struct {
	BaseURL      string
	ServiceToken string
}

// Config is the full service configuration.
type Config struct {
	Addr           string
	Portal         Portal
	Proxy          Proxy
	Backend        Backend
	DatabaseURL    string
	RedisURL       string
	SessionTTL     time.Duration
	RequestTimeout time.Duration
}

const (
	defaultTaxpayerURL     = "http://contribuyente.seniat.gob.ve/BuscaRif/BuscaRif.jsp"
	defaultProfessionalURL = "https://sistemas.sacs.gob.ve/consultas/prfsnal_salud"
	defaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
)

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("ADDR")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":3001"
		}
	}

	return Config{
		Addr: addr,
		Portal: Portal{
			TaxpayerURL:     envOr("TAXPAYER_PORTAL_URL", defaultTaxpayerURL),
			ProfessionalURL: envOr("PROFESSIONAL_PORTAL_URL", defaultProfessionalURL),
			UserAgent:       envOr("PORTAL_USER_AGENT", defaultUserAgent),
			NavTimeout:      durationOr("PORTAL_NAV_TIMEOUT", 90*time.Second),
			Headless:        os.Getenv("PORTAL_HEADFUL") != "true",
		},
		Proxy: Proxy{
			Server:   os.Getenv("PROXY_SERVER"),
			Username: os.Getenv("PROXY_USERNAME"),
			Password: os.Getenv("PROXY_PASSWORD"),
		},
		Backend: Backend{
			BaseURL:      os.Getenv("BACKEND_BASE_URL"),
			ServiceToken: os.Getenv("BACKEND_SERVICE_TOKEN"),
		},
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		SessionTTL:     durationOr("SESSION_TTL", 10*time.Minute),
		RequestTimeout: durationOr("REQUEST_TIMEOUT", 5*time.Minute),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
