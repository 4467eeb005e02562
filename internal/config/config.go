package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string

	APIEndpoint       string
	APIOrigin         string
	Retailer          string
	HTTPClientTimeout time.Duration

	WidgetScriptURL    string
	WidgetGlobalName   string
	WidgetPollInterval time.Duration
	WidgetPollTimeout  time.Duration
	ScriptLoadAttempts int

	OTelServiceName string
	OTelEndpoint    string
}

func Load() *Config {
	return &Config{
		Port:        envOr("APP_PORT", "8080"),
		Environment: envOr("APP_ENV", "development"),

		APIEndpoint:       envOr("PROMISE_API_ENDPOINT", "https://ws.narvar.com/api/v2/promise/delivery-options"),
		APIOrigin:         envOr("PROMISE_ORIGIN", "promise-widget-test"),
		Retailer:          envOr("PROMISE_RETAILER", "backcountry"),
		HTTPClientTimeout: envOrDuration("HTTP_CLIENT_TIMEOUT", 30*time.Second),

		WidgetScriptURL:    os.Getenv("WIDGET_SCRIPT_URL"),
		WidgetGlobalName:   envOr("WIDGET_GLOBAL_NAME", "narvar"),
		WidgetPollInterval: envOrDuration("WIDGET_POLL_INTERVAL", 500*time.Millisecond),
		WidgetPollTimeout:  envOrDuration("WIDGET_POLL_TIMEOUT", 15*time.Second),
		ScriptLoadAttempts: envOrInt("SCRIPT_LOAD_ATTEMPTS", 3),

		OTelServiceName: envOr("OTEL_SERVICE_NAME", "promise-harness"),
		OTelEndpoint:    envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// envOr treats an empty value as unset.
func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// envOrDuration accepts Go duration strings ("750ms") or a bare number of milliseconds.
func envOrDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
