package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"

	"custreg/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Engine EngineConfig
	DB     DBConfig
	Ingest IngestConfig
	Export ExportConfig
	S3     S3Config
	Log    LogConfig
}

// FieldWeights holds the per-field weights used by the fuzzy matcher.
// Weights must sum to 1.0 over all four fields; at comparison time they are
// renormalized over the fields actually present in both records.
type FieldWeights struct {
	Name     float64 `mapstructure:"name"`
	Document float64 `mapstructure:"document"`
	Phone    float64 `mapstructure:"phone"`
	Address  float64 `mapstructure:"address"`
}

// Sum returns the total of all four weights.
func (w FieldWeights) Sum() float64 {
	return w.Name + w.Document + w.Phone + w.Address
}

// Thresholds holds the two confidence bands for fuzzy merging.
type Thresholds struct {
	High   float64 `mapstructure:"high"`
	Medium float64 `mapstructure:"medium"`
}

// EngineConfig holds the identity resolution engine settings.
type EngineConfig struct {
	Weights         FieldWeights `mapstructure:"weights"`
	Thresholds      Thresholds   `mapstructure:"thresholds"`
	DefaultAreaCode string       `mapstructure:"default_area_code"`
	DocumentLength  int          `mapstructure:"document_length"`
	Workers         int          `mapstructure:"workers"`
}

// weightEpsilon is the tolerance for the weights-sum-to-1.0 check.
const weightEpsilon = 1e-9

// Validate checks the engine configuration. Any failure is a fatal
// ConfigError: the run must not begin.
func (e *EngineConfig) Validate() error {
	if e.Weights.Name < 0 || e.Weights.Document < 0 || e.Weights.Phone < 0 || e.Weights.Address < 0 {
		return &domain.ConfigError{Option: "engine.weights", Err: domain.ErrNegativeWeight}
	}
	if math.Abs(e.Weights.Sum()-1.0) > weightEpsilon {
		return &domain.ConfigError{Option: "engine.weights", Err: domain.ErrWeightsSum}
	}
	t := e.Thresholds
	if t.Medium < 0 || t.Medium > t.High || t.High > 1 {
		return &domain.ConfigError{Option: "engine.thresholds", Err: domain.ErrThresholdRange}
	}
	if e.DocumentLength <= 0 {
		return &domain.ConfigError{Option: "engine.document_length", Err: domain.ErrDocumentLength}
	}
	return nil
}

// IngestConfig holds spreadsheet ingestion settings.
type IngestConfig struct {
	HeaderScanRows int `mapstructure:"header_scan_rows"`
}

// ExportConfig holds CSV export settings.
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings for fetching source workbooks.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from environment variables with the CUSTREG_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CUSTREG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Engine defaults. The weights favor the name field: it is the only field
	// reliably present across the per-store exports.
	v.SetDefault("engine.weights.name", 0.4)
	v.SetDefault("engine.weights.document", 0.3)
	v.SetDefault("engine.weights.phone", 0.2)
	v.SetDefault("engine.weights.address", 0.1)
	v.SetDefault("engine.thresholds.high", 0.9)
	v.SetDefault("engine.thresholds.medium", 0.75)
	v.SetDefault("engine.default_area_code", "11")
	v.SetDefault("engine.document_length", 11)
	v.SetDefault("engine.workers", 4)

	// Ingest defaults
	v.SetDefault("ingest.header_scan_rows", 10)

	// Export defaults
	v.SetDefault("export.dir", "out")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "custreg")
	v.SetDefault("db.password", "custreg_secret")
	v.SetDefault("db.name", "custreg_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")

	// Log defaults
	v.SetDefault("log.level", "debug")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"engine.weights.name":      "CUSTREG_ENGINE_WEIGHTS_NAME",
		"engine.weights.document":  "CUSTREG_ENGINE_WEIGHTS_DOCUMENT",
		"engine.weights.phone":     "CUSTREG_ENGINE_WEIGHTS_PHONE",
		"engine.weights.address":   "CUSTREG_ENGINE_WEIGHTS_ADDRESS",
		"engine.thresholds.high":   "CUSTREG_ENGINE_THRESHOLDS_HIGH",
		"engine.thresholds.medium": "CUSTREG_ENGINE_THRESHOLDS_MEDIUM",
		"engine.default_area_code": "CUSTREG_ENGINE_DEFAULT_AREA_CODE",
		"engine.document_length":   "CUSTREG_ENGINE_DOCUMENT_LENGTH",
		"engine.workers":           "CUSTREG_ENGINE_WORKERS",
		"ingest.header_scan_rows":  "CUSTREG_INGEST_HEADER_SCAN_ROWS",
		"export.dir":               "CUSTREG_EXPORT_DIR",
		"db.host":                  "CUSTREG_DB_HOST",
		"db.port":                  "CUSTREG_DB_PORT",
		"db.user":                  "CUSTREG_DB_USER",
		"db.password":              "CUSTREG_DB_PASSWORD",
		"db.name":                  "CUSTREG_DB_NAME",
		"db.sslmode":               "CUSTREG_DB_SSLMODE",
		"db.max_open":              "CUSTREG_DB_MAX_OPEN",
		"db.max_idle":              "CUSTREG_DB_MAX_IDLE",
		"s3.region":                "CUSTREG_S3_REGION",
		"s3.endpoint":              "CUSTREG_S3_ENDPOINT",
		"s3.access_key":            "CUSTREG_S3_ACCESS_KEY",
		"s3.secret_key":            "CUSTREG_S3_SECRET_KEY",
		"log.level":                "CUSTREG_LOG_LEVEL",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	cfg.Engine = EngineConfig{
		Weights: FieldWeights{
			Name:     v.GetFloat64("engine.weights.name"),
			Document: v.GetFloat64("engine.weights.document"),
			Phone:    v.GetFloat64("engine.weights.phone"),
			Address:  v.GetFloat64("engine.weights.address"),
		},
		Thresholds: Thresholds{
			High:   v.GetFloat64("engine.thresholds.high"),
			Medium: v.GetFloat64("engine.thresholds.medium"),
		},
		DefaultAreaCode: v.GetString("engine.default_area_code"),
		DocumentLength:  v.GetInt("engine.document_length"),
		Workers:         v.GetInt("engine.workers"),
	}
	cfg.Ingest = IngestConfig{
		HeaderScanRows: v.GetInt("ingest.header_scan_rows"),
	}
	cfg.Export = ExportConfig{
		Dir: v.GetString("export.dir"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.Log = LogConfig{
		Level: v.GetString("log.level"),
	}

	return cfg, nil
}
