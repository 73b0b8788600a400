package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"enip/database"
	"enip/models"
	"enip/waypoint"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL      string
	DatabaseName     string
	DatabaseMaxConns int32

	// Results feed
	APIKey         string
	APIURL         string
	ElectionDate   string
	IngestTestData bool
	FeedFile       string // Replay a recorded feed snapshot instead of calling the API

	// Publishing
	BlobURL       string // gocloud bucket URL, e.g. s3://bucket?region=us-east-1 or mem://
	BlobPrefix    string
	CDNURL        string
	ExportWorkers int

	// Scheduling
	WaypointIntervals []waypoint.Interval
	HistoryWaypoint   string         // Interval whose waypoints feed popVoteHistory
	PersistLevels     []models.Level // Levels whose raw records are written on a persisting run
	RunInterval       time.Duration  // Tick of the watch loop
	RunLockTTL        time.Duration

	// Collaborators
	NATSURL   string // Empty disables change notifications
	RedisAddr string // Empty disables the distributed run lock
	SentryDSN string // Empty reports export failures to the log only

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance   *Config
	once       sync.Once
	mu         sync.Mutex // Protects instance for test setup
	configFile string
)

// UseConfigFile makes the next load read the given file before the environment.
// Environment variables still win over file values.
func UseConfigFile(path string) {
	mu.Lock()
	defer mu.Unlock()
	configFile = path
}

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load(configFile)
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// Scheduler builds the waypoint scheduler for the configured intervals
func (c *Config) Scheduler() (*waypoint.Scheduler, error) {
	return waypoint.NewScheduler(c.WaypointIntervals)
}

// Persists reports whether raw records of the given level are written to the store
func (c *Config) Persists(level models.Level) bool {
	for _, l := range c.PersistLevels {
		if l == level {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_NAME", "")
	v.SetDefault("DATABASE_MAX_CONNS", 50)

	v.SetDefault("AP_API_KEY", "")
	v.SetDefault("AP_API_URL", "https://api.ap.org/v2/elections")
	v.SetDefault("ELECTION_DATE", "2020-11-03")
	v.SetDefault("INGEST_TEST_DATA", false)
	v.SetDefault("FEED_FILE", "")

	v.SetDefault("BLOB_URL", "mem://")
	v.SetDefault("BLOB_PREFIX", "")
	v.SetDefault("CDN_URL", "")
	v.SetDefault("EXPORT_WORKERS", 26)

	v.SetDefault("WAYPOINT_INTERVALS", "15m,30m,60m")
	v.SetDefault("HISTORY_WAYPOINT", "30m")
	v.SetDefault("PERSIST_LEVELS", "national,state,district")
	v.SetDefault("RUN_INTERVAL", "1m")
	v.SetDefault("RUN_LOCK_TTL", "5m")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("SENTRY_DSN", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("ENVIRONMENT", "development")
}

// load loads configuration from an optional config file and the environment
func load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	config := &Config{
		DatabaseURL:      v.GetString("DATABASE_URL"),
		DatabaseName:     v.GetString("DATABASE_NAME"),
		DatabaseMaxConns: v.GetInt32("DATABASE_MAX_CONNS"),

		APIKey:         v.GetString("AP_API_KEY"),
		APIURL:         v.GetString("AP_API_URL"),
		ElectionDate:   v.GetString("ELECTION_DATE"),
		IngestTestData: v.GetBool("INGEST_TEST_DATA"),
		FeedFile:       v.GetString("FEED_FILE"),

		BlobURL:       v.GetString("BLOB_URL"),
		BlobPrefix:    v.GetString("BLOB_PREFIX"),
		CDNURL:        strings.TrimRight(v.GetString("CDN_URL"), "/"),
		ExportWorkers: v.GetInt("EXPORT_WORKERS"),

		HistoryWaypoint: v.GetString("HISTORY_WAYPOINT"),
		RunInterval:     v.GetDuration("RUN_INTERVAL"),
		RunLockTTL:      v.GetDuration("RUN_LOCK_TTL"),

		NATSURL:   v.GetString("NATS_URL"),
		RedisAddr: v.GetString("REDIS_ADDR"),
		SentryDSN: v.GetString("SENTRY_DSN"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		Environment: v.GetString("ENVIRONMENT"),
	}

	intervals, err := waypoint.ParseIntervals(v.GetString("WAYPOINT_INTERVALS"))
	if err != nil {
		return nil, err
	}
	config.WaypointIntervals = intervals

	levels, err := parseLevels(v.GetString("PERSIST_LEVELS"))
	if err != nil {
		return nil, err
	}
	config.PersistLevels = levels

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Environment != "test" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.ExportWorkers < 1 {
		return fmt.Errorf("EXPORT_WORKERS must be at least 1, got %d", c.ExportWorkers)
	}
	if c.DatabaseMaxConns < int32(c.ExportWorkers) {
		return fmt.Errorf("DATABASE_MAX_CONNS (%d) must be at least EXPORT_WORKERS (%d)", c.DatabaseMaxConns, c.ExportWorkers)
	}
	if c.RunInterval <= 0 {
		return fmt.Errorf("RUN_INTERVAL must be positive")
	}

	scheduler, err := c.Scheduler()
	if err != nil {
		return fmt.Errorf("invalid WAYPOINT_INTERVALS: %w", err)
	}
	if !scheduler.Has(c.HistoryWaypoint) {
		return fmt.Errorf("HISTORY_WAYPOINT %q is not one of the configured waypoint intervals", c.HistoryWaypoint)
	}
	return nil
}

var errUnknownLevel = errors.New("unknown level")

func parseLevels(raw string) ([]models.Level, error) {
	var levels []models.Level
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		level := models.Level(part)
		if !level.Valid() {
			return nil, fmt.Errorf("invalid PERSIST_LEVELS entry %q: %w", part, errUnknownLevel)
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	configFile = ""
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:      "test",
		DatabaseMaxConns: 10,
		BlobURL:          "mem://",
		CDNURL:           "https://cdn.example.test",
		ExportWorkers:    4,
		WaypointIntervals: []waypoint.Interval{
			{Name: "15m", Duration: 15 * time.Minute},
			{Name: "30m", Duration: 30 * time.Minute},
			{Name: "60m", Duration: time.Hour},
		},
		HistoryWaypoint: "30m",
		PersistLevels:   []models.Level{models.LevelNational, models.LevelState, models.LevelDistrict},
		RunInterval:     time.Minute,
		RunLockTTL:      5 * time.Minute,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}
