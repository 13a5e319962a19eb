package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/noc-kpi-engine/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64

	// SourceFile is analyzed once at startup when set.
	SourceFile string

	// Engine defaults, used when a request leaves a parameter unset.
	Threshold       float64
	ConsecutiveDays int
	AvailThreshold  *float64
	PRBThreshold    *float64
	ThresholdsFile  string

	// Major alarm publishing.
	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaAlarmTopic string
	BatchSize       int

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

const (
	defaultThreshold       = 85.0
	defaultConsecutiveDays = 3
	defaultAvailThreshold  = 95.0
	defaultPRBThreshold    = 85.0
	defaultMaxUploadBytes  = 32 << 20
)

// Load reads configuration from environment variables, applying defaults where unset.
// Threshold values come from the defaults, then THRESHOLDS_FILE, then the
// environment, each layer overriding the previous one.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	maxUpload, err := strconv.ParseInt(sharedcfg.EnvOrDefault("MAX_UPLOAD_BYTES", strconv.Itoa(defaultMaxUploadBytes)), 10, 64)
	if err != nil || maxUpload <= 0 {
		return nil, errors.New("invalid MAX_UPLOAD_BYTES")
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	brokers := sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		MaxUploadBytes:  maxUpload,
		SourceFile:      os.Getenv("KPI_SOURCE_FILE"),

		Threshold:       defaultThreshold,
		ConsecutiveDays: defaultConsecutiveDays,
		AvailThreshold:  floatPtr(defaultAvailThreshold),
		PRBThreshold:    floatPtr(defaultPRBThreshold),
		ThresholdsFile:  os.Getenv("THRESHOLDS_FILE"),

		KafkaEnabled:    kafkaEnabled,
		KafkaBrokers:    brokers,
		KafkaAlarmTopic: sharedcfg.EnvOrDefault("KAFKA_ALARM_TOPIC", "noc-major-alarms"),
		BatchSize:       batchSize,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.ThresholdsFile != "" {
		if err := cfg.applyThresholdsFile(cfg.ThresholdsFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyThresholdEnv(); err != nil {
		return nil, err
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaAlarmTopic == "" {
		return nil, errors.New("KAFKA_ALARM_TOPIC is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if err := cfg.Params().Validate(); err != nil {
		return nil, fmt.Errorf("threshold config: %w", err)
	}

	return cfg, nil
}

// Params returns the configured engine defaults. The optional thresholds are
// copied so callers may override them without touching the config.
func (c *Config) Params() domain.Params {
	p := domain.Params{
		Threshold:       c.Threshold,
		ConsecutiveDays: c.ConsecutiveDays,
	}
	if c.AvailThreshold != nil {
		p.AvailThreshold = floatPtr(*c.AvailThreshold)
	}
	if c.PRBThreshold != nil {
		p.PRBThreshold = floatPtr(*c.PRBThreshold)
	}
	return p
}

func (c *Config) applyThresholdEnv() error {
	if s := os.Getenv("PRB_CONGESTION_THRESHOLD"); s != "" {
		v, err := parseFinite(s)
		if err != nil {
			return errors.New("invalid PRB_CONGESTION_THRESHOLD")
		}
		c.Threshold = v
	}
	if s := os.Getenv("CONSECUTIVE_DAYS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return errors.New("invalid CONSECUTIVE_DAYS: must be a positive integer")
		}
		c.ConsecutiveDays = n
	}

	// An empty value disables the corresponding half of the availability rule.
	for _, opt := range []struct {
		env string
		dst **float64
	}{
		{"AVAIL_THRESHOLD", &c.AvailThreshold},
		{"PRB_THRESHOLD", &c.PRBThreshold},
	} {
		s, ok := os.LookupEnv(opt.env)
		if !ok {
			continue
		}
		if s == "" {
			*opt.dst = nil
			continue
		}
		v, err := parseFinite(s)
		if err != nil {
			return fmt.Errorf("invalid %s", opt.env)
		}
		*opt.dst = floatPtr(v)
	}
	return nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not finite")
	}
	return v, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func floatPtr(v float64) *float64 {
	return &v
}
