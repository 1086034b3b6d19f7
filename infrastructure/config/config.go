package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Sink backends
const (
	SinkCSV      = "csv"
	SinkSheets   = "sheets"
	SinkDynamoDB = "dynamodb"
)

// Session store backends
const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`
	IsLambda      bool   `yaml:"is_lambda"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Assignment
	SampleSize int `yaml:"sample_size"`

	// Item catalog
	CatalogPath             string   `yaml:"catalog_path"`
	CatalogIDColumn         string   `yaml:"catalog_id_column"`
	CatalogAttributeColumns []string `yaml:"catalog_attribute_columns"`
	WatchCatalog            bool     `yaml:"watch_catalog"`

	// Rubric
	ScoreDimensions []string `yaml:"score_dimensions"`
	ScoreMin        int      `yaml:"score_min"`
	ScoreMax        int      `yaml:"score_max"`

	// Rating sink
	Sink                  string `yaml:"sink"`
	ResultsPath           string `yaml:"results_path"`
	SheetsSpreadsheetID   string `yaml:"sheets_spreadsheet_id"`
	SheetsSheetName       string `yaml:"sheets_sheet_name"`
	SheetsCredentialsFile string `yaml:"sheets_credentials_file"`

	// Sink protection
	SinkTimeout             time.Duration `yaml:"sink_timeout"`
	BreakerMaxRequests      uint32        `yaml:"breaker_max_requests"`
	BreakerInterval         time.Duration `yaml:"breaker_interval"`
	BreakerTimeout          time.Duration `yaml:"breaker_timeout"`
	BreakerFailureThreshold float64       `yaml:"breaker_failure_threshold"`
	BreakerMinRequests      uint32        `yaml:"breaker_min_requests"`

	// Session store
	SessionStore string        `yaml:"session_store"`
	SessionTTL   time.Duration `yaml:"session_ttl"`

	// AWS configuration
	AWSRegion     string `yaml:"aws_region"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	EventBusName  string `yaml:"event_bus_name"`

	// Feature flags
	EnableMetrics      bool     `yaml:"enable_metrics"`
	EnableTracing      bool     `yaml:"enable_tracing"`
	EnableCORS         bool     `yaml:"enable_cors"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		ServerAddress: ":8080",
		Environment:   "development",
		LogLevel:      "info",

		SampleSize: 30,

		CatalogPath:             "human_eval_subset/human_eval_subset_metadata.csv",
		CatalogIDColumn:         "filename",
		CatalogAttributeColumns: []string{"ethnicity", "age_group"},

		ScoreDimensions: []string{"realism", "age_appropriateness", "ethnic_consistency"},
		ScoreMin:        1,
		ScoreMax:        5,

		Sink:            SinkCSV,
		ResultsPath:     "evaluation_results.csv",
		SheetsSheetName: "Sheet1",

		SinkTimeout:             10 * time.Second,
		BreakerMaxRequests:      1,
		BreakerInterval:         30 * time.Second,
		BreakerTimeout:          15 * time.Second,
		BreakerFailureThreshold: 0.8,
		BreakerMinRequests:      5,

		SessionStore: StoreMemory,
		SessionTTL:   12 * time.Hour,

		AWSRegion:     "us-west-2",
		DynamoDBTable: "human-eval",

		EnableMetrics:      true,
		EnableCORS:         true,
		CORSAllowedOrigins: []string{"*"},
	}
}

// LoadConfig builds configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables. Later sources win.
func LoadConfig() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig for backwards compatibility
func Load() (*Config, error) {
	return LoadConfig()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.IsLambda = getEnvBool("IS_LAMBDA", c.IsLambda)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.SampleSize = getEnvInt("SAMPLE_SIZE", c.SampleSize)

	c.CatalogPath = getEnv("CATALOG_PATH", c.CatalogPath)
	c.CatalogIDColumn = getEnv("CATALOG_ID_COLUMN", c.CatalogIDColumn)
	c.CatalogAttributeColumns = getEnvList("CATALOG_ATTRIBUTE_COLUMNS", c.CatalogAttributeColumns)
	c.WatchCatalog = getEnvBool("WATCH_CATALOG", c.WatchCatalog)

	c.ScoreDimensions = getEnvList("SCORE_DIMENSIONS", c.ScoreDimensions)
	c.ScoreMin = getEnvInt("SCORE_MIN", c.ScoreMin)
	c.ScoreMax = getEnvInt("SCORE_MAX", c.ScoreMax)

	c.Sink = strings.ToLower(getEnv("SINK", c.Sink))
	c.ResultsPath = getEnv("RESULTS_PATH", c.ResultsPath)
	c.SheetsSpreadsheetID = getEnv("SHEETS_SPREADSHEET_ID", c.SheetsSpreadsheetID)
	c.SheetsSheetName = getEnv("SHEETS_SHEET_NAME", c.SheetsSheetName)
	c.SheetsCredentialsFile = getEnv("SHEETS_CREDENTIALS_FILE", c.SheetsCredentialsFile)

	c.SinkTimeout = getEnvDuration("SINK_TIMEOUT", c.SinkTimeout)
	c.BreakerMaxRequests = uint32(getEnvInt("BREAKER_MAX_REQUESTS", int(c.BreakerMaxRequests)))
	c.BreakerInterval = getEnvDuration("BREAKER_INTERVAL", c.BreakerInterval)
	c.BreakerTimeout = getEnvDuration("BREAKER_TIMEOUT", c.BreakerTimeout)
	c.BreakerFailureThreshold = getEnvFloat("BREAKER_FAILURE_THRESHOLD", c.BreakerFailureThreshold)
	c.BreakerMinRequests = uint32(getEnvInt("BREAKER_MIN_REQUESTS", int(c.BreakerMinRequests)))

	c.SessionStore = strings.ToLower(getEnv("SESSION_STORE", c.SessionStore))
	c.SessionTTL = getEnvDuration("SESSION_TTL", c.SessionTTL)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDBTable))
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	c.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.SampleSize < 0 {
		return fmt.Errorf("SAMPLE_SIZE cannot be negative: %d", c.SampleSize)
	}
	if c.CatalogPath == "" {
		return fmt.Errorf("CATALOG_PATH is required")
	}
	if c.CatalogIDColumn == "" {
		return fmt.Errorf("CATALOG_ID_COLUMN is required")
	}
	if len(c.ScoreDimensions) == 0 {
		return fmt.Errorf("SCORE_DIMENSIONS cannot be empty")
	}
	if c.ScoreMin > c.ScoreMax {
		return fmt.Errorf("SCORE_MIN (%d) is greater than SCORE_MAX (%d)", c.ScoreMin, c.ScoreMax)
	}
	if c.SinkTimeout <= 0 {
		return fmt.Errorf("SINK_TIMEOUT must be positive")
	}

	switch c.Sink {
	case SinkCSV:
		if c.ResultsPath == "" {
			return fmt.Errorf("RESULTS_PATH is required for the csv sink")
		}
	case SinkSheets:
		if c.SheetsSpreadsheetID == "" {
			return fmt.Errorf("SHEETS_SPREADSHEET_ID is required for the sheets sink")
		}
		if c.SheetsCredentialsFile == "" {
			return fmt.Errorf("SHEETS_CREDENTIALS_FILE is required for the sheets sink")
		}
	case SinkDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb sink")
		}
	default:
		return fmt.Errorf("unknown SINK %q (want csv, sheets or dynamodb)", c.Sink)
	}

	switch c.SessionStore {
	case StoreMemory:
	case StoreDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb session store")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q (want memory or dynamodb)", c.SessionStore)
	}

	if c.IsLambda && c.SessionStore == StoreMemory && c.IsProduction() {
		return fmt.Errorf("SESSION_STORE=memory cannot be shared across Lambda instances")
	}
	if c.IsLambda && c.Sink == SinkCSV && c.IsProduction() {
		return fmt.Errorf("SINK=csv is not durable on Lambda; use sheets or dynamodb")
	}

	return nil
}

// NeedsAWS reports whether any AWS client must be built
func (c *Config) NeedsAWS() bool {
	return c.Sink == SinkDynamoDB || c.SessionStore == StoreDynamoDB || c.EventBusName != ""
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
