package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/lychee-technology/attrschema"
	"github.com/lychee-technology/attrschema/internal"
)

// setSource names an attribute set either by file or by directory and id.
type setSource struct {
	file string
	dir  string
	id   int64
}

func (s *setSource) register(flags *pflag.FlagSet) {
	flags.StringVarP(&s.file, "set-file", "f", "", "Path to an attribute set JSON file")
	flags.StringVar(&s.dir, "set-dir", getenvDefault("STORE_DIR", ""), "Directory of attribute set files (used with --set-id)")
	flags.Int64Var(&s.id, "set-id", 0, "Attribute set id to look up in --set-dir")
}

// store returns a store holding the named set and the id to select.
func (s *setSource) store() (attrschema.AttributeSetStore, int64, error) {
	switch {
	case s.file != "":
		set, err := internal.ReadAttributeSetFile(s.file)
		if err != nil {
			return nil, 0, err
		}
		return fixedStore{set: set}, set.ID, nil
	case s.dir != "" && s.id > 0:
		store, err := internal.NewFileAttributeSetStore(s.dir)
		if err != nil {
			return nil, 0, err
		}
		return store, s.id, nil
	default:
		return nil, 0, fmt.Errorf("either --set-file or --set-dir with --set-id must be provided")
	}
}

// load fetches the named set.
func (s *setSource) load(ctx context.Context) (*attrschema.AttributeSet, error) {
	store, id, err := s.store()
	if err != nil {
		return nil, err
	}
	return store.GetAttributeSet(ctx, id)
}

// fixedStore serves one set read from a file.
type fixedStore struct {
	set *attrschema.AttributeSet
}

func (f fixedStore) GetAttributeSet(ctx context.Context, id int64) (*attrschema.AttributeSet, error) {
	if id != f.set.ID {
		return nil, attrschema.NewAttributeSetNotFoundError(id)
	}
	return f.set.Clone(), nil
}

func (f fixedStore) ListAttributeSets(ctx context.Context) ([]*attrschema.AttributeSet, error) {
	return []*attrschema.AttributeSet{f.set.Clone()}, nil
}

// readRecord decodes a JSON object from path, or from stdin when path is "-".
func readRecord(path string, stdin io.Reader) (attrschema.AttributesData, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var record attrschema.AttributesData
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse record JSON: %w", err)
	}
	if record == nil {
		record = attrschema.AttributesData{}
	}
	return record, nil
}

func writeIndented(out io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = fmt.Fprintln(out, string(encoded))
	return err
}
