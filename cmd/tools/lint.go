package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/lychee-technology/attrschema/internal"
)

func runLint(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("lint", pflag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() {
		fmt.Fprintln(out, "Usage: attrschema-tools lint [options] <file-or-dir>...")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Options:")
		flags.PrintDefaults()
	}

	strict := flags.Bool("strict", false, "Fail when any definition problem is found")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flags.NArg() == 0 {
		return fmt.Errorf("at least one attribute set file or directory is required")
	}

	paths, err := collectSetFiles(flags.Args())
	if err != nil {
		return err
	}

	problems := 0
	for _, path := range paths {
		set, err := internal.ReadAttributeSetFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		schema, err := internal.Compile(set)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		diagnostics := schema.Diagnostics()
		if len(diagnostics) == 0 {
			fmt.Fprintf(out, "%s: ok (%d attributes)\n", path, len(schema.Codes()))
			continue
		}
		for _, d := range diagnostics {
			rule := ""
			if d.Rule != "" {
				rule = " " + d.Rule
			}
			fmt.Fprintf(out, "%s: %s%s: %s\n", path, d.Attribute, rule, d.Reason)
		}
		problems += len(diagnostics)
	}

	if *strict && problems > 0 {
		return fmt.Errorf("%d definition problem(s) found", problems)
	}
	return nil
}

// collectSetFiles expands directories into their *.json files, sorted.
func collectSetFiles(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
				continue
			}
			found = append(found, filepath.Join(arg, entry.Name()))
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}
