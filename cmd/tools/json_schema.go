package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/lychee-technology/attrschema/internal"
)

func runJSONSchema(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("json-schema", pflag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() {
		fmt.Fprintln(out, "Usage: attrschema-tools json-schema [options]")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Options:")
		flags.PrintDefaults()
	}

	var source setSource
	source.register(flags)
	outputFile := flags.StringP("out", "o", "", "Path to write the JSON Schema (defaults to stdout)")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	set, err := source.load(context.Background())
	if err != nil {
		return err
	}
	schema, err := internal.Compile(set)
	if err != nil {
		return err
	}

	if *outputFile == "" {
		return writeIndented(out, schema.JSONSchema())
	}

	encoded, err := json.MarshalIndent(schema.JSONSchema(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(*outputFile), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(*outputFile, encoded, 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	fmt.Fprintf(out, "JSON Schema written, output: %s\n", *outputFile)
	return nil
}
