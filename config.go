package attrschema

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Store backends
const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
	StoreBackendS3       = "s3"
)

// Config consolidates settings for the attribute set stores, the HTTP facade
// and logging.
type Config struct {
	Database DatabaseConfig `json:"database"`
	Store    StoreConfig    `json:"store"`
	S3       S3Config       `json:"s3"`
	Cache    CacheConfig    `json:"cache"`
	Breaker  BreakerConfig  `json:"breaker"`
	Server   ServerConfig   `json:"server"`
	Logging  LoggingConfig  `json:"logging"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port" validate:"min=1,max=65535"`
	Database        string        `json:"database"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"sslMode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxConnections  int           `json:"maxConnections" validate:"gt=0"`
	MaxIdleConns    int           `json:"maxIdleConns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `json:"connMaxIdleTime"`
	Timeout         time.Duration `json:"timeout"`
	// UseIAM replaces the password with an Aurora DSQL auth token.
	UseIAM     bool       `json:"useIAM"`
	Region     string     `json:"region"`
	TableNames TableNames `json:"tableNames"`
}

// TableNames holds the tables backing attribute sets.
type TableNames struct {
	Attributes          string `json:"attributes" validate:"required"`
	AttributeSets       string `json:"attributeSets" validate:"required"`
	AttributeSetMembers string `json:"attributeSetMembers" validate:"required"`
}

// StoreConfig selects where attribute sets are looked up.
type StoreConfig struct {
	Backend   string `json:"backend" validate:"required,oneof=file postgres s3"`
	Directory string `json:"directory" validate:"required_if=Backend file"`
}

// S3Config contains object storage settings for the s3 backend.
type S3Config struct {
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	UsePathStyle    bool   `json:"usePathStyle"`
}

// CacheConfig controls caching of fetched attribute sets.
type CacheConfig struct {
	Enabled bool          `json:"enabled"`
	TTL     time.Duration `json:"ttl" validate:"gte=0"`
}

// BreakerConfig controls the circuit breaker in front of remote stores.
// A zero Threshold disables it.
type BreakerConfig struct {
	Threshold    int           `json:"threshold" validate:"gte=0"`
	Window       time.Duration `json:"window" validate:"gte=0"`
	OpenDuration time.Duration `json:"openDuration" validate:"gte=0"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         string        `json:"port" validate:"required,numeric"`
	Env          string        `json:"env" validate:"oneof=development production test"`
	ReadTimeout  time.Duration `json:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout"`
	MaxBodyBytes int64         `json:"maxBodyBytes" validate:"gt=0"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" validate:"oneof=json console"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "catalog",
			Username:        "postgres",
			SSLMode:         "disable",
			MaxConnections:  10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			Timeout:         10 * time.Second,
			TableNames: TableNames{
				Attributes:          "products_productattribute",
				AttributeSets:       "products_productattributeset",
				AttributeSetMembers: "products_productattributeset_attributes",
			},
		},
		Store: StoreConfig{
			Backend:   StoreBackendFile,
			Directory: "attribute_sets",
		},
		S3: S3Config{
			Prefix: "attribute-sets/",
			Region: "us-east-1",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
		},
		Breaker: BreakerConfig{
			Threshold:    5,
			Window:       time.Minute,
			OpenDuration: 30 * time.Second,
		},
		Server: ServerConfig{
			Port:         "8080",
			Env:          "development",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			return &ConfigError{Field: field, Message: "failed on the '" + fe.Tag() + "' rule"}
		}
		return &ConfigError{Field: "config", Message: err.Error()}
	}

	if c.Store.Backend == StoreBackendS3 && c.S3.Bucket == "" {
		return &ConfigError{Field: "s3.bucket", Message: "is required for the s3 backend"}
	}

	if c.Database.UseIAM && c.Database.Region == "" {
		return &ConfigError{Field: "database.region", Message: "is required when useIAM is enabled"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
