package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/lychee-technology/attrschema"
	"github.com/lychee-technology/attrschema/factory"
	"github.com/lychee-technology/attrschema/internal"
)

func runPublish(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("publish", pflag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() {
		fmt.Fprintln(out, "Usage: attrschema-tools publish [options] <file-or-dir>...")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Options:")
		flags.PrintDefaults()
	}

	cfg := attrschema.DefaultConfig().S3
	flags.StringVar(&cfg.Bucket, "bucket", getenvDefault("S3_BUCKET", ""), "Target bucket")
	flags.StringVar(&cfg.Prefix, "prefix", getenvDefault("S3_PREFIX", cfg.Prefix), "Key prefix")
	flags.StringVar(&cfg.Region, "region", getenvDefault("S3_REGION", cfg.Region), "Bucket region")
	flags.StringVar(&cfg.Endpoint, "endpoint", getenvDefault("S3_ENDPOINT", ""), "Custom S3 endpoint (MinIO, RustFS)")
	flags.StringVar(&cfg.AccessKeyID, "access-key-id", getenvDefault("S3_ACCESS_KEY_ID", ""), "Static access key id")
	flags.StringVar(&cfg.SecretAccessKey, "secret-access-key", getenvDefault("S3_SECRET_ACCESS_KEY", ""), "Static secret access key")
	flags.BoolVar(&cfg.UsePathStyle, "path-style", false, "Use path style addressing")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flags.NArg() == 0 {
		return fmt.Errorf("at least one attribute set file or directory is required")
	}
	if err := internal.ValidateS3Config(cfg); err != nil {
		return err
	}

	paths, err := collectSetFiles(flags.Args())
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, uploader, err := factory.NewS3Clients(ctx, cfg)
	if err != nil {
		return err
	}
	store := internal.NewS3AttributeSetStore(client, uploader, cfg.Bucket, cfg.Prefix)
	return publishSets(ctx, store, paths, out)
}

// publishSets reads every file first so nothing is uploaded when one of
// them is malformed.
func publishSets(ctx context.Context, publisher attrschema.AttributeSetPublisher, paths []string, out io.Writer) error {
	sets := make([]*attrschema.AttributeSet, 0, len(paths))
	for _, path := range paths {
		set, err := internal.ReadAttributeSetFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		sets = append(sets, set)
	}

	for i, set := range sets {
		if err := publisher.PutAttributeSet(ctx, set); err != nil {
			return fmt.Errorf("publish %s: %w", paths[i], err)
		}
		zap.S().Infow("published attribute set", "attribute_set_id", set.ID, "path", paths[i])
		fmt.Fprintf(out, "Published attribute set %d (%s)\n", set.ID, set.Name)
	}
	return nil
}
