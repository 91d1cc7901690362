package internal

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lychee-technology/attrschema"
)

const defaultHealthTimeout = 5 * time.Second

// ValidatePostgresConfig performs basic sanity checks on Postgres-related settings.
func ValidatePostgresConfig(cfg attrschema.DatabaseConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("database.port must be a valid TCP port")
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("database.maxConnections must be greater than 0")
	}
	if cfg.UseIAM && cfg.Region == "" {
		return fmt.Errorf("database.region is required with useIAM")
	}
	return nil
}

// ValidateS3Config performs basic sanity checks on the s3 backend settings.
func ValidateS3Config(cfg attrschema.S3Config) error {
	if cfg.Bucket == "" {
		return fmt.Errorf("s3.bucket is required")
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey == "" {
		return fmt.Errorf("s3.accessKeyId provided without s3.secretAccessKey")
	}
	if cfg.SecretAccessKey != "" && cfg.AccessKeyID == "" {
		return fmt.Errorf("s3.secretAccessKey provided without s3.accessKeyId")
	}
	return nil
}

// postgresPinger is the subset of pgxpool.Pool used by the health check.
type postgresPinger interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresHealthCheck pings the pool and runs a trivial query.
// timeout may be 0 to use the default (5s).
func PostgresHealthCheck(ctx context.Context, pool postgresPinger, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := pool.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("postgres simple query failed: %w", err)
	}
	return nil
}

// s3BucketAPI is the subset of *s3.Client used by the health check.
type s3BucketAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3HealthCheck confirms the bucket exists and is reachable with the
// configured credentials.
func S3HealthCheck(ctx context.Context, client s3BucketAPI, bucket string, timeout time.Duration) error {
	if bucket == "" {
		return fmt.Errorf("s3 bucket not configured")
	}
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("s3 head bucket %s failed: %w", bucket, err)
	}
	return nil
}

// CheckHealth reports whether the set directory is still readable.
func (s *FileAttributeSetStore) CheckHealth(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("attribute set directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("attribute set directory %s is not a directory", s.dir)
	}
	return nil
}

// CheckHealth pings the database when the pool supports it.
func (r *PostgresAttributeSetStore) CheckHealth(ctx context.Context) error {
	pinger, ok := r.pool.(postgresPinger)
	if !ok {
		return nil
	}
	return PostgresHealthCheck(ctx, pinger, 0)
}

// CheckHealth heads the bucket when the client supports it.
func (s *S3AttributeSetStore) CheckHealth(ctx context.Context) error {
	client, ok := s.client.(s3BucketAPI)
	if !ok {
		return nil
	}
	return S3HealthCheck(ctx, client, s.bucket, 0)
}

// CheckHealth delegates to the wrapped store.
func (c *CachedAttributeSetStore) CheckHealth(ctx context.Context) error {
	if checker, ok := c.next.(attrschema.HealthChecker); ok {
		return checker.CheckHealth(ctx)
	}
	return nil
}

var (
	_ attrschema.HealthChecker = (*FileAttributeSetStore)(nil)
	_ attrschema.HealthChecker = (*PostgresAttributeSetStore)(nil)
	_ attrschema.HealthChecker = (*S3AttributeSetStore)(nil)
	_ attrschema.HealthChecker = (*CachedAttributeSetStore)(nil)
)
