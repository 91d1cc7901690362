package main

import (
	"errors"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lychee-technology/attrschema"
)

// newConfigViper reads .env from the working directory when present and
// lets environment variables override it.
func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			zap.S().Warnw("could not read config file", "error", err)
		}
	}
	return v
}

// loadConfig maps environment keys onto attrschema.Config, starting from
// DefaultConfig, and validates the result.
func loadConfig(v *viper.Viper) (*attrschema.Config, error) {
	defaults := attrschema.DefaultConfig()

	v.SetDefault("STORE_BACKEND", defaults.Store.Backend)
	v.SetDefault("STORE_DIR", defaults.Store.Directory)

	v.SetDefault("DB_HOST", defaults.Database.Host)
	v.SetDefault("DB_PORT", defaults.Database.Port)
	v.SetDefault("DB_NAME", defaults.Database.Database)
	v.SetDefault("DB_USER", defaults.Database.Username)
	v.SetDefault("DB_SSL_MODE", defaults.Database.SSLMode)
	v.SetDefault("DB_MAX_CONNECTIONS", defaults.Database.MaxConnections)
	v.SetDefault("DB_MAX_IDLE_CONNS", defaults.Database.MaxIdleConns)
	v.SetDefault("DB_CONN_MAX_LIFETIME", defaults.Database.ConnMaxLifetime)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", defaults.Database.ConnMaxIdleTime)
	v.SetDefault("DB_TIMEOUT", defaults.Database.Timeout)
	v.SetDefault("DB_USE_IAM", false)
	v.SetDefault("ATTRIBUTES_TABLE", defaults.Database.TableNames.Attributes)
	v.SetDefault("ATTRIBUTE_SETS_TABLE", defaults.Database.TableNames.AttributeSets)
	v.SetDefault("ATTRIBUTE_SET_MEMBERS_TABLE", defaults.Database.TableNames.AttributeSetMembers)

	v.SetDefault("S3_PREFIX", defaults.S3.Prefix)
	v.SetDefault("S3_REGION", defaults.S3.Region)
	v.SetDefault("S3_USE_PATH_STYLE", false)

	v.SetDefault("CACHE_ENABLED", defaults.Cache.Enabled)
	v.SetDefault("CACHE_TTL", defaults.Cache.TTL)

	v.SetDefault("BREAKER_THRESHOLD", defaults.Breaker.Threshold)
	v.SetDefault("BREAKER_WINDOW", defaults.Breaker.Window)
	v.SetDefault("BREAKER_OPEN_DURATION", defaults.Breaker.OpenDuration)

	v.SetDefault("SERVER_PORT", defaults.Server.Port)
	v.SetDefault("SERVER_ENV", defaults.Server.Env)
	v.SetDefault("SERVER_READ_TIMEOUT", defaults.Server.ReadTimeout)
	v.SetDefault("SERVER_WRITE_TIMEOUT", defaults.Server.WriteTimeout)
	v.SetDefault("SERVER_MAX_BODY_BYTES", defaults.Server.MaxBodyBytes)

	v.SetDefault("LOG_LEVEL", defaults.Logging.Level)
	v.SetDefault("LOG_FORMAT", defaults.Logging.Format)

	cfg := &attrschema.Config{
		Database: attrschema.DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			Database:        v.GetString("DB_NAME"),
			Username:        v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			SSLMode:         v.GetString("DB_SSL_MODE"),
			MaxConnections:  v.GetInt("DB_MAX_CONNECTIONS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
			Timeout:         v.GetDuration("DB_TIMEOUT"),
			UseIAM:          v.GetBool("DB_USE_IAM"),
			Region:          v.GetString("DB_REGION"),
			TableNames: attrschema.TableNames{
				Attributes:          v.GetString("ATTRIBUTES_TABLE"),
				AttributeSets:       v.GetString("ATTRIBUTE_SETS_TABLE"),
				AttributeSetMembers: v.GetString("ATTRIBUTE_SET_MEMBERS_TABLE"),
			},
		},
		Store: attrschema.StoreConfig{
			Backend:   v.GetString("STORE_BACKEND"),
			Directory: v.GetString("STORE_DIR"),
		},
		S3: attrschema.S3Config{
			Bucket:          v.GetString("S3_BUCKET"),
			Prefix:          v.GetString("S3_PREFIX"),
			Region:          v.GetString("S3_REGION"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			UsePathStyle:    v.GetBool("S3_USE_PATH_STYLE"),
		},
		Cache: attrschema.CacheConfig{
			Enabled: v.GetBool("CACHE_ENABLED"),
			TTL:     v.GetDuration("CACHE_TTL"),
		},
		Breaker: attrschema.BreakerConfig{
			Threshold:    v.GetInt("BREAKER_THRESHOLD"),
			Window:       v.GetDuration("BREAKER_WINDOW"),
			OpenDuration: v.GetDuration("BREAKER_OPEN_DURATION"),
		},
		Server: attrschema.ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Env:          v.GetString("SERVER_ENV"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
			MaxBodyBytes: v.GetInt64("SERVER_MAX_BODY_BYTES"),
		},
		Logging: attrschema.LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
