package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/lychee-technology/attrschema"
	"github.com/lychee-technology/attrschema/internal"
)

func main() {
	logger, err := internal.NewLogger(getenvDefault("ENV", "development"), attrschema.LoggingConfig{
		Level:  getenvDefault("LOG_LEVEL", "info"),
		Format: getenvDefault("LOG_FORMAT", "console"),
	})
	if err != nil {
		panic(fmt.Errorf("failed to set up logger: %w", err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		if err := runValidate(os.Args[2:], os.Stdout); err != nil {
			sugar.Fatalf("validate: %v", err)
		}
	case "lint":
		if err := runLint(os.Args[2:], os.Stdout); err != nil {
			sugar.Fatalf("lint: %v", err)
		}
	case "json-schema":
		if err := runJSONSchema(os.Args[2:], os.Stdout); err != nil {
			sugar.Fatalf("json-schema: %v", err)
		}
	case "publish":
		if err := runPublish(os.Args[2:], os.Stdout); err != nil {
			sugar.Fatalf("publish: %v", err)
		}
	case "init-db":
		if err := runInitDB(os.Args[2:]); err != nil {
			sugar.Fatalf("init-db: %v", err)
		}
	default:
		sugar.Errorf("unknown command %q", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	logger := zap.S()
	logger.Info("Usage: attrschema-tools <command> [options]")
	logger.Info("")
	logger.Info("Commands:")
	logger.Info("  validate      Validate a product attributes record against an attribute set")
	logger.Info("  lint          Compile attribute set files and report dropped definition problems")
	logger.Info("  json-schema   Export an attribute set as a JSON Schema document")
	logger.Info("  publish       Upload attribute set files to an S3 bucket")
	logger.Info("  init-db       Create the catalog attribute tables and import attribute set files")
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
