package factory

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lychee-technology/attrschema"
	"github.com/lychee-technology/attrschema/internal"
)

// NewAttributeSetStore creates the attribute set store selected by
// config.Store.Backend. Remote backends sit behind a circuit breaker, and
// everything is wrapped in a cache when config.Cache.Enabled is set.
// The returned close function releases backend resources and is never nil.
//
// Usage:
//
//	import (
//	    "github.com/lychee-technology/attrschema"
//	    "github.com/lychee-technology/attrschema/factory"
//	)
//
//	cfg := attrschema.DefaultConfig()
//	cfg.Store.Directory = "./attribute_sets"
//	store, closeStore, err := factory.NewAttributeSetStore(ctx, cfg)
//	if err != nil {
//	    // handle error
//	}
//	defer closeStore()
func NewAttributeSetStore(ctx context.Context, cfg *attrschema.Config) (attrschema.AttributeSetStore, func(), error) {
	noop := func() {}
	if cfg == nil {
		return nil, noop, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, noop, err
	}

	var (
		store     attrschema.AttributeSetStore
		closeFunc = noop
	)

	switch cfg.Store.Backend {
	case attrschema.StoreBackendFile:
		fileStore, err := internal.NewFileAttributeSetStore(cfg.Store.Directory)
		if err != nil {
			return nil, noop, err
		}
		store = fileStore

	case attrschema.StoreBackendPostgres:
		if err := internal.ValidatePostgresConfig(cfg.Database); err != nil {
			return nil, noop, err
		}
		pool, err := NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, noop, err
		}
		store = internal.NewPostgresAttributeSetStore(pool, cfg.Database.TableNames)
		closeFunc = pool.Close

	case attrschema.StoreBackendS3:
		if err := internal.ValidateS3Config(cfg.S3); err != nil {
			return nil, noop, err
		}
		client, uploader, err := NewS3Clients(ctx, cfg.S3)
		if err != nil {
			return nil, noop, err
		}
		store = internal.NewS3AttributeSetStore(client, uploader, cfg.S3.Bucket, cfg.S3.Prefix)

	default:
		return nil, noop, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}

	if cfg.Store.Backend != attrschema.StoreBackendFile && cfg.Breaker.Threshold > 0 {
		breaker := internal.NewCircuitBreaker(cfg.Breaker.Threshold, cfg.Breaker.Window, cfg.Breaker.OpenDuration)
		store = internal.NewBreakerAttributeSetStore(store, breaker)
	}

	zap.S().Infow("attribute set store ready",
		"backend", cfg.Store.Backend,
		"cache", cfg.Cache.Enabled,
		"cache_ttl", cfg.Cache.TTL,
		"breaker_threshold", cfg.Breaker.Threshold)

	if cfg.Cache.Enabled {
		store = internal.NewCachedAttributeSetStore(store, cfg.Cache.TTL)
	}
	return store, closeFunc, nil
}

// ConnString renders a postgres URL for cfg with the given password.
func ConnString(cfg attrschema.DatabaseConfig, password string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, password),
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:   "/" + cfg.Database,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(cfg.SSLMode)
	}
	return u.String()
}

// NewPool creates a PostgreSQL connection pool and pings it. With UseIAM
// every new connection authenticates with a fresh Aurora DSQL token.
func NewPool(ctx context.Context, cfg attrschema.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(ConnString(cfg, cfg.Password))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.Timeout

	if cfg.UseIAM {
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		poolConfig.BeforeConnect = func(ctx context.Context, connConfig *pgx.ConnConfig) error {
			token, err := auth.GenerateDbConnectAuthToken(ctx, endpoint, awsCfg.Region, awsCfg.Credentials)
			if err != nil {
				return fmt.Errorf("generate dsql auth token: %w", err)
			}
			connConfig.Password = token
			return nil
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// NewS3Clients builds an S3 client and an uploader for cfg. Static
// credentials and a custom endpoint are used when configured.
func NewS3Clients(ctx context.Context, cfg attrschema.S3Config) (*s3.Client, *manager.Uploader, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	if cfg.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(cfg.Endpoint))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return client, manager.NewUploader(client), nil
}

