package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/lychee-technology/attrschema"
)

// FileAttributeSetStore serves attribute sets loaded from the *.json files of
// a directory. Each file holds one set in the attribute-set service format.
type FileAttributeSetStore struct {
	mu   sync.RWMutex
	dir  string
	sets map[int64]*attrschema.AttributeSet
}

var _ attrschema.AttributeSetStore = (*FileAttributeSetStore)(nil)

// NewFileAttributeSetStore loads every set found in dir.
func NewFileAttributeSetStore(dir string) (*FileAttributeSetStore, error) {
	store := &FileAttributeSetStore{dir: dir}
	if err := store.Reload(); err != nil {
		return nil, err
	}
	return store, nil
}

// Reload rescans the directory and replaces the loaded sets.
func (s *FileAttributeSetStore) Reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return attrschema.NewStoreError(fmt.Sprintf("failed to read attribute set directory %s", s.dir), err)
	}

	sets := make(map[int64]*attrschema.AttributeSet)
	sources := make(map[int64]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		set, err := ReadAttributeSetFile(path)
		if err != nil {
			return err
		}
		if previous, dup := sources[set.ID]; dup {
			return attrschema.NewStoreError(
				fmt.Sprintf("attribute set %d defined in both %s and %s", set.ID, previous, path), nil)
		}
		sets[set.ID] = set
		sources[set.ID] = path
	}

	s.mu.Lock()
	s.sets = sets
	s.mu.Unlock()

	zap.S().Infow("loaded attribute sets from directory", "dir", s.dir, "count", len(sets))
	return nil
}

// GetAttributeSet returns a copy of the set with the given id.
func (s *FileAttributeSetStore) GetAttributeSet(ctx context.Context, id int64) (*attrschema.AttributeSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sets[id]
	if !ok {
		return nil, attrschema.NewAttributeSetNotFoundError(id)
	}
	return set.Clone(), nil
}

// ListAttributeSets returns copies of every loaded set ordered by name.
func (s *FileAttributeSetStore) ListAttributeSets(ctx context.Context) ([]*attrschema.AttributeSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*attrschema.AttributeSet, 0, len(s.sets))
	for _, set := range s.sets {
		out = append(out, set.Clone())
	}
	sortSets(out)
	return out, nil
}

// ReadAttributeSetFile decodes one attribute set file.
func ReadAttributeSetFile(path string) (*attrschema.AttributeSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, attrschema.NewStoreError(fmt.Sprintf("failed to read attribute set file %s", path), err)
	}
	set, err := DecodeAttributeSet(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse attribute set file %s: %w", path, err)
	}
	return set, nil
}

// DecodeAttributeSet parses the attribute-set service JSON representation.
func DecodeAttributeSet(data []byte) (*attrschema.AttributeSet, error) {
	var set attrschema.AttributeSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, attrschema.NewAttributeSetInvalidError(0, err)
	}
	if set.ID <= 0 {
		return nil, attrschema.NewAttributeSetInvalidError(set.ID, fmt.Errorf("attribute set id must be positive"))
	}
	return &set, nil
}

func sortSets(sets []*attrschema.AttributeSet) {
	sort.SliceStable(sets, func(i, j int) bool {
		if sets[i].Name != sets[j].Name {
			return sets[i].Name < sets[j].Name
		}
		return sets[i].ID < sets[j].ID
	})
}
