package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Geocoding providers.
const (
	ProviderStadia = "stadia"
	ProviderMapbox = "mapbox"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Geocoding.
	GeocoderProvider  string
	StadiaAPIKey      string
	StadiaBaseURL     string
	MapboxToken       string
	MapboxBaseURL     string
	GeocoderTimeout   time.Duration
	GeocoderRateLimit float64
	GeocoderLanguage  string
	GeocoderCacheSize int
	GeocoderCacheTTL  time.Duration

	// DefaultPosition is "lat,lon" used when a request carries no position.
	// Empty disables the fallback.
	DefaultPosition string

	// Activity venue pipeline.
	PipelineEnabled    bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	Tracing TracingConfig
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool
	Exporter     string // stdout, otlp or none
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := parsePositiveDuration("GEOCODER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("GEOCODER_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}

	rateLimit, err := parseFloat("GEOCODER_RATE_LIMIT", 10)
	if err != nil || rateLimit < 0 {
		return nil, errors.New("invalid GEOCODER_RATE_LIMIT: must be a non-negative number")
	}

	cacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("GEOCODER_CACHE_SIZE", "1000"))
	if err != nil || cacheSize < 0 {
		return nil, errors.New("invalid GEOCODER_CACHE_SIZE: must be a non-negative integer")
	}

	sampleRate, err := parseFloat("TRACING_SAMPLE_RATE", 1.0)
	if err != nil || sampleRate < 0 || sampleRate > 1 {
		return nil, errors.New("invalid TRACING_SAMPLE_RATE: must be between 0 and 1")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GeocoderProvider:  strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER_PROVIDER", ProviderStadia)),
		StadiaAPIKey:      os.Getenv("STADIA_API_KEY"),
		StadiaBaseURL:     sharedcfg.EnvOrDefault("STADIA_BASE_URL", "https://api.stadiamaps.com/geocoding"),
		MapboxToken:       os.Getenv("MAPBOX_TOKEN"),
		MapboxBaseURL:     sharedcfg.EnvOrDefault("MAPBOX_BASE_URL", "https://api.mapbox.com/geocoding/v5/mapbox.places"),
		GeocoderTimeout:   geocoderTimeout,
		GeocoderRateLimit: rateLimit,
		GeocoderLanguage:  sharedcfg.EnvOrDefault("GEOCODER_LANGUAGE", "en"),
		GeocoderCacheSize: cacheSize,
		GeocoderCacheTTL:  cacheTTL,

		DefaultPosition: strings.TrimSpace(os.Getenv("DEFAULT_POSITION")),

		PipelineEnabled:    os.Getenv("PIPELINE_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "club-activities-raw"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "club-activities-enriched"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "venue-locator"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		Tracing: TracingConfig{
			Enabled:      os.Getenv("TRACING_ENABLED") == "true",
			Exporter:     sharedcfg.EnvOrDefault("TRACING_EXPORTER", "stdout"),
			ServiceName:  sharedcfg.EnvOrDefault("TRACING_SERVICE_NAME", "venue-locator"),
			OTLPEndpoint: sharedcfg.EnvOrDefault("OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   sampleRate,
		},
	}

	switch cfg.GeocoderProvider {
	case ProviderStadia:
	case ProviderMapbox:
		if cfg.MapboxToken == "" {
			return nil, errors.New("GEOCODER_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	default:
		return nil, fmt.Errorf("invalid GEOCODER_PROVIDER %q: must be stadia or mapbox", cfg.GeocoderProvider)
	}

	if cfg.PipelineEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(s, 64)
}
