package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/crimson-sun/silverwatch/internal/output"
)

// Version is the release version reported by --version.
const Version = "0.3.0"

// Sink names accepted in SILVERWATCH_OUTPUTS.
const (
	SinkMySQL   = "mysql"
	SinkSQLite  = "sqlite"
	SinkKafka   = "kafka"
	SinkMQTT    = "mqtt"
	SinkRedis   = "redis"
	SinkWebhook = "webhook"
	SinkFile    = "file"
	SinkStdout  = "stdout"
)

var knownSinks = []string{SinkMySQL, SinkSQLite, SinkKafka, SinkMQTT, SinkRedis, SinkWebhook, SinkFile, SinkStdout}

// Config holds all silverwatch configuration.
type Config struct {
	Source          SourceConfig
	Engine          EngineConfig
	Output          OutputConfig
	Display         DisplayConfig
	LogLevel        string
	ShutdownTimeout time.Duration
	ShowVersion     bool
}

// SourceConfig selects where frames come from.
type SourceConfig struct {
	Provider string // "gst", "imagedir"
	URI      string
	Loop     bool
	Interval time.Duration // imagedir pacing between frames
}

// EngineConfig holds classification settings.
type EngineConfig struct {
	PalettePath string // empty = built-in palette
	Threshold   float64
}

// OutputConfig lists the alert sinks and their settings.
type OutputConfig struct {
	Sinks       []string
	Async       bool
	AsyncBuffer int
	Pretty      bool

	MySQL   MySQLConfig
	SQLite  SQLiteConfig
	Kafka   KafkaConfig
	MQTT    MQTTConfig
	Redis   RedisConfig
	Webhook WebhookConfig
	File    FileConfig
}

// MySQLConfig is the relational store alerts are inserted into.
type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Table    string

	// CreateTable runs CREATE TABLE IF NOT EXISTS at startup.
	CreateTable bool
}

// SQLiteConfig is a local database file for alerts.
type SQLiteConfig struct {
	Path  string
	Table string
}

// KafkaConfig publishes alerts to a Kafka topic.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// MQTTConfig publishes alerts to an MQTT broker.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

// RedisConfig appends alerts to a Redis stream.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

// WebhookConfig POSTs each alert to a URL.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
}

// FileConfig appends alerts as NDJSON to a local file.
type FileConfig struct {
	Path    string
	MaxSize int64 // bytes, 0 = no rotation
}

// DisplayConfig controls saving of annotated frames. Disabled when Dir is empty.
type DisplayConfig struct {
	Dir         string
	Every       int
	Format      string // "png" or "jpeg"
	JPEGQuality int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Source: SourceConfig{
			Provider: getenv("SILVERWATCH_SOURCE", "gst"),
			URI:      getenv("SILVERWATCH_SOURCE_URI", "v4l2:///dev/video0"),
			Loop:     getenvBool("SILVERWATCH_SOURCE_LOOP", false),
			Interval: getenvDuration("SILVERWATCH_SOURCE_INTERVAL", 0),
		},
		Engine: EngineConfig{
			PalettePath: os.Getenv("SILVERWATCH_PALETTE_PATH"),
			Threshold:   getenvFloat("SILVERWATCH_THRESHOLD", 15.0),
		},
		Output: OutputConfig{
			Sinks:       getenvList("SILVERWATCH_OUTPUTS", []string{SinkMySQL, SinkStdout}),
			Async:       getenvBool("SILVERWATCH_ASYNC", false),
			AsyncBuffer: getenvInt("SILVERWATCH_ASYNC_BUFFER", 64),
			Pretty:      getenvBool("SILVERWATCH_OUTPUT_PRETTY", false),
			MySQL: MySQLConfig{
				Host:     getenv("SILVERWATCH_MYSQL_HOST", "localhost"),
				Port:     getenvInt("SILVERWATCH_MYSQL_PORT", 3306),
				User:     os.Getenv("SILVERWATCH_MYSQL_USER"),
				Password: os.Getenv("SILVERWATCH_MYSQL_PASSWORD"),
				Database: getenv("SILVERWATCH_MYSQL_DATABASE", "water_quality"),
				Table:    getenv("SILVERWATCH_MYSQL_TABLE", output.DefaultTable),

				CreateTable: getenvBool("SILVERWATCH_MYSQL_CREATE_TABLE", false),
			},
			SQLite: SQLiteConfig{
				Path:  getenv("SILVERWATCH_SQLITE_PATH", "silverwatch.db"),
				Table: getenv("SILVERWATCH_SQLITE_TABLE", output.DefaultTable),
			},
			Kafka: KafkaConfig{
				Brokers: getenvList("SILVERWATCH_KAFKA_BROKERS", nil),
				Topic:   getenv("SILVERWATCH_KAFKA_TOPIC", "silverwatch.alerts"),
			},
			MQTT: MQTTConfig{
				Broker:   os.Getenv("SILVERWATCH_MQTT_BROKER"),
				Topic:    getenv("SILVERWATCH_MQTT_TOPIC", "silverwatch/alerts"),
				ClientID: getenv("SILVERWATCH_MQTT_CLIENT_ID", "silverwatch"),
				Username: os.Getenv("SILVERWATCH_MQTT_USERNAME"),
				Password: os.Getenv("SILVERWATCH_MQTT_PASSWORD"),
			},
			Redis: RedisConfig{
				Addr:     os.Getenv("SILVERWATCH_REDIS_ADDR"),
				Password: os.Getenv("SILVERWATCH_REDIS_PASSWORD"),
				DB:       getenvInt("SILVERWATCH_REDIS_DB", 0),
				Stream:   getenv("SILVERWATCH_REDIS_STREAM", "silverwatch:alerts"),
			},
			Webhook: WebhookConfig{
				URL:     os.Getenv("SILVERWATCH_WEBHOOK_URL"),
				Timeout: getenvDuration("SILVERWATCH_WEBHOOK_TIMEOUT", 10*time.Second),
			},
			File: FileConfig{
				Path:    getenv("SILVERWATCH_FILE_PATH", "silverwatch-alerts.ndjson"),
				MaxSize: int64(getenvInt("SILVERWATCH_FILE_MAX_SIZE", 0)),
			},
		},
		Display: DisplayConfig{
			Dir:         os.Getenv("SILVERWATCH_DISPLAY_DIR"),
			Every:       getenvInt("SILVERWATCH_DISPLAY_EVERY", 30),
			Format:      getenv("SILVERWATCH_DISPLAY_FORMAT", "png"),
			JPEGQuality: getenvInt("SILVERWATCH_DISPLAY_JPEG_QUALITY", 90),
		},
		LogLevel:        getenv("SILVERWATCH_LOG_LEVEL", "info"),
		ShutdownTimeout: getenvDuration("SILVERWATCH_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// BindFlags registers command-line flags on fs. Each flag defaults to the
// value already in c, so flags override the environment.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Source.Provider, "source", c.Source.Provider, "frame source provider (gst, imagedir)")
	fs.StringVar(&c.Source.URI, "uri", c.Source.URI, "source URI (v4l2:///dev/video0, rtsp://..., file://..., or a directory)")
	fs.BoolVar(&c.Source.Loop, "loop", c.Source.Loop, "restart the source at end of stream")
	fs.DurationVar(&c.Source.Interval, "interval", c.Source.Interval, "delay between replayed frames")
	fs.StringVar(&c.Engine.PalettePath, "palette", c.Engine.PalettePath, "YAML palette file (default: built-in palette)")
	fs.Float64Var(&c.Engine.Threshold, "threshold", c.Engine.Threshold, "maximum RGB distance for a match")
	fs.StringSliceVar(&c.Output.Sinks, "outputs", c.Output.Sinks, "alert sinks: "+strings.Join(knownSinks, ","))
	fs.BoolVar(&c.Output.Async, "async", c.Output.Async, "queue alerts and persist them off the frame loop")
	fs.BoolVar(&c.Output.Pretty, "pretty", c.Output.Pretty, "indent stdout JSON")
	fs.StringVar(&c.Display.Dir, "display-dir", c.Display.Dir, "save annotated frames to this directory")
	fs.IntVar(&c.Display.Every, "display-every", c.Display.Every, "save one of every N frames")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	fs.BoolVar(&c.ShowVersion, "version", false, "print version and exit")
}

// Validate checks the configuration for errors and returns all of them joined.
func (c Config) Validate() error {
	var errs []error

	if c.Source.Provider == "" {
		errs = append(errs, fmt.Errorf("source provider must be set (SILVERWATCH_SOURCE)"))
	}
	if c.Source.URI == "" {
		errs = append(errs, fmt.Errorf("source URI must be set (SILVERWATCH_SOURCE_URI)"))
	}
	if c.Source.Interval < 0 {
		errs = append(errs, fmt.Errorf("source interval must be non-negative, got %s", c.Source.Interval))
	}

	if math.IsNaN(c.Engine.Threshold) || c.Engine.Threshold < 0 {
		errs = append(errs, fmt.Errorf("threshold must be non-negative, got %v", c.Engine.Threshold))
	}
	if c.Engine.PalettePath != "" {
		if _, err := os.Stat(c.Engine.PalettePath); err != nil {
			errs = append(errs, fmt.Errorf("palette file not found: %s", c.Engine.PalettePath))
		}
	}

	errs = append(errs, c.Output.validate()...)

	if c.Display.Dir != "" {
		if c.Display.Every < 1 {
			errs = append(errs, fmt.Errorf("display every must be at least 1, got %d", c.Display.Every))
		}
		if c.Display.Format != "png" && c.Display.Format != "jpeg" {
			errs = append(errs, fmt.Errorf("display format must be png or jpeg, got %q", c.Display.Format))
		}
		if c.Display.Format == "jpeg" && (c.Display.JPEGQuality < 1 || c.Display.JPEGQuality > 100) {
			errs = append(errs, fmt.Errorf("display jpeg quality must be 1-100, got %d", c.Display.JPEGQuality))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log level must be debug, info, warn or error, got %q", c.LogLevel))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be non-negative, got %s", c.ShutdownTimeout))
	}

	return errors.Join(errs...)
}

func (o OutputConfig) validate() []error {
	var errs []error
	if len(o.Sinks) == 0 {
		errs = append(errs, fmt.Errorf("at least one output must be set (SILVERWATCH_OUTPUTS)"))
	}
	if o.Async && o.AsyncBuffer < 1 {
		errs = append(errs, fmt.Errorf("async buffer must be at least 1, got %d", o.AsyncBuffer))
	}

	seen := make(map[string]bool, len(o.Sinks))
	for _, s := range o.Sinks {
		if seen[s] {
			errs = append(errs, fmt.Errorf("output %q listed twice", s))
			continue
		}
		seen[s] = true

		switch s {
		case SinkMySQL:
			if o.MySQL.Host == "" || o.MySQL.Database == "" {
				errs = append(errs, fmt.Errorf("mysql output requires SILVERWATCH_MYSQL_HOST and SILVERWATCH_MYSQL_DATABASE"))
			}
			if o.MySQL.Port < 1 || o.MySQL.Port > 65535 {
				errs = append(errs, fmt.Errorf("mysql port out of range: %d", o.MySQL.Port))
			}
			if err := output.ValidateTable(o.MySQL.Table); err != nil {
				errs = append(errs, fmt.Errorf("mysql table: %w", err))
			}
		case SinkSQLite:
			if o.SQLite.Path == "" {
				errs = append(errs, fmt.Errorf("sqlite output requires SILVERWATCH_SQLITE_PATH"))
			}
			if err := output.ValidateTable(o.SQLite.Table); err != nil {
				errs = append(errs, fmt.Errorf("sqlite table: %w", err))
			}
		case SinkKafka:
			if len(o.Kafka.Brokers) == 0 || o.Kafka.Topic == "" {
				errs = append(errs, fmt.Errorf("kafka output requires SILVERWATCH_KAFKA_BROKERS and SILVERWATCH_KAFKA_TOPIC"))
			}
		case SinkMQTT:
			if o.MQTT.Broker == "" || o.MQTT.Topic == "" {
				errs = append(errs, fmt.Errorf("mqtt output requires SILVERWATCH_MQTT_BROKER and SILVERWATCH_MQTT_TOPIC"))
			}
		case SinkRedis:
			if o.Redis.Addr == "" || o.Redis.Stream == "" {
				errs = append(errs, fmt.Errorf("redis output requires SILVERWATCH_REDIS_ADDR and SILVERWATCH_REDIS_STREAM"))
			}
		case SinkWebhook:
			if o.Webhook.URL == "" {
				errs = append(errs, fmt.Errorf("webhook output requires SILVERWATCH_WEBHOOK_URL"))
			}
		case SinkFile:
			if o.File.Path == "" {
				errs = append(errs, fmt.Errorf("file output requires SILVERWATCH_FILE_PATH"))
			}
			if o.File.MaxSize < 0 {
				errs = append(errs, fmt.Errorf("file max size must be non-negative, got %d", o.File.MaxSize))
			}
		case SinkStdout:
		default:
			errs = append(errs, fmt.Errorf("unknown output %q (valid: %s)", s, strings.Join(knownSinks, ", ")))
		}
	}
	return errs
}

// HasSink reports whether name is among the configured sinks.
func (o OutputConfig) HasSink(name string) bool {
	for _, s := range o.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
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

// getenvList splits a comma-separated value, trimming blanks.
func getenvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
