package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vanshika/muletrace/internal/detect"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP      HTTPConfig
	Graph     GraphConfig
	Logging   LoggingConfig
	Detection DetectionConfig
	Kafka     KafkaConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	AllowedOriginsCSV string
	UploadMaxBytes    int64
}

// GraphConfig describes connectivity to the graph database (Neptune/Neo4j).
// An empty URI disables graph-backed batch loading.
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
	FetchSize      int
	QueryTimeout   time.Duration
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

// DetectionConfig holds detector thresholds and the legit-hub switch.
type DetectionConfig struct {
	Window            time.Duration
	FanThreshold      int
	VelocityThreshold int
	MinCycleLength    int
	MaxCycleLength    int
	ShellMaxDegree    int
	MaxCycles         int
	SuppressLegitHubs bool
}

// KafkaConfig enables report publication when Brokers is non-empty.
type KafkaConfig struct {
	BrokersCSV string
	Topic      string
	ClientID   string
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 30 * time.Second
	defaultWriteTimeout     = 60 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultUploadMaxBytes   = 10 << 20
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10
	defaultGraphFetchSize   = 1000
	defaultGraphTimeout     = 30 * time.Second
	defaultKafkaTopic       = "muletrace.reports"
	defaultKafkaClientID    = "muletrace"
)

// Load reads configuration from environment variables, applying defaults.
// Values from a .env file in the working directory are loaded first and
// never override variables that are already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	thresholds := detect.DefaultConfig()
	cfg := Config{
		HTTP: HTTPConfig{
			Host:              valueOrDefault("SERVER_HOST", defaultHost),
			AllowedOriginsCSV: os.Getenv("SERVER_ALLOWED_ORIGINS"),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       valueOrDefault("GRAPH_DATABASE", ""),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
			FetchSize:      parseIntWithDefault("GRAPH_FETCH_SIZE", defaultGraphFetchSize),
		},
		Detection: DetectionConfig{
			FanThreshold:      parseIntWithDefault("DETECT_FAN_THRESHOLD", thresholds.FanThreshold),
			VelocityThreshold: parseIntWithDefault("DETECT_VELOCITY_THRESHOLD", thresholds.VelocityThreshold),
			MinCycleLength:    parseIntWithDefault("DETECT_MIN_CYCLE_LENGTH", thresholds.MinCycleLength),
			MaxCycleLength:    parseIntWithDefault("DETECT_MAX_CYCLE_LENGTH", thresholds.MaxCycleLength),
			ShellMaxDegree:    parseIntWithDefault("DETECT_SHELL_MAX_DEGREE", thresholds.ShellMaxDegree),
			MaxCycles:         parseIntWithDefault("DETECT_MAX_CYCLES", thresholds.MaxCycles),
			SuppressLegitHubs: parseBoolWithDefault("DETECT_SUPPRESS_LEGIT_HUBS", false),
		},
		Kafka: KafkaConfig{
			BrokersCSV: os.Getenv("KAFKA_BROKERS"),
			Topic:      valueOrDefault("KAFKA_TOPIC", defaultKafkaTopic),
			ClientID:   valueOrDefault("KAFKA_CLIENT_ID", defaultKafkaClientID),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", defaultReadTimeout, &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", defaultWriteTimeout, &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", defaultIdleTimeout, &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &cfg.HTTP.ShutdownTimeout},
		{"GRAPH_QUERY_TIMEOUT", defaultGraphTimeout, &cfg.Graph.QueryTimeout},
		{"DETECT_WINDOW", thresholds.Window, &cfg.Detection.Window},
	}
	for _, d := range durations {
		val, err := parseDuration(d.key, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.dst = val
	}

	limit, err := parseInt64("UPLOAD_MAX_BYTES", defaultUploadMaxBytes)
	if err != nil {
		return Config{}, err
	}
	if limit <= 0 {
		return Config{}, fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", limit)
	}
	cfg.HTTP.UploadMaxBytes = limit

	if cfg.Detection.MaxCycleLength < cfg.Detection.MinCycleLength {
		return Config{}, fmt.Errorf("DETECT_MAX_CYCLE_LENGTH %d is below DETECT_MIN_CYCLE_LENGTH %d",
			cfg.Detection.MaxCycleLength, cfg.Detection.MinCycleLength)
	}

	return cfg, nil
}

// Thresholds converts the section into detector configuration.
func (d DetectionConfig) Thresholds() detect.Config {
	return detect.Config{
		Window:            d.Window,
		FanThreshold:      d.FanThreshold,
		VelocityThreshold: d.VelocityThreshold,
		MinCycleLength:    d.MinCycleLength,
		MaxCycleLength:    d.MaxCycleLength,
		ShellMaxDegree:    d.ShellMaxDegree,
		MaxCycles:         d.MaxCycles,
	}
}

// Brokers splits the broker list, dropping blanks.
func (k KafkaConfig) Brokers() []string {
	return SplitCSV(k.BrokersCSV)
}

// Enabled reports whether a broker list was configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers()) > 0
}

// SplitCSV splits a comma separated value and trims each element.
func SplitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseInt64(key string, fallback int64) (int64, error) {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		return val, nil
	}
	return fallback, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
