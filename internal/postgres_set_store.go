package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/lychee-technology/attrschema"
)

// attributeSetPool is the subset of pgxpool.Pool the Postgres store needs.
type attributeSetPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresAttributeSetStore reads attribute sets from the catalog database
// tables: attributes, attribute sets and the set membership join table.
type PostgresAttributeSetStore struct {
	pool   attributeSetPool
	tables attrschema.TableNames
}

var _ attrschema.AttributeSetStore = (*PostgresAttributeSetStore)(nil)

// NewPostgresAttributeSetStore creates a store over pool.
func NewPostgresAttributeSetStore(pool attributeSetPool, tables attrschema.TableNames) *PostgresAttributeSetStore {
	return &PostgresAttributeSetStore{pool: pool, tables: tables}
}

const setColumns = "s.id, s.name, s.code, s.description, s.is_active, s.category_id, s.brand_id"

const attributeColumns = "a.id, a.code, a.name, a.description, a.type, a.is_required, a.default_value, a.options, a.validation_rules"

func (r *PostgresAttributeSetStore) setQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s s WHERE s.id = $1", setColumns, sanitizeIdentifier(r.tables.AttributeSets))
}

func (r *PostgresAttributeSetStore) listQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s s ORDER BY s.name, s.id", setColumns, sanitizeIdentifier(r.tables.AttributeSets))
}

// Membership rows are ordered by their own id, which is the order in which
// attributes were added to the set.
func (r *PostgresAttributeSetStore) attributesQuery() string {
	return fmt.Sprintf(
		"SELECT m.productattributeset_id, %s FROM %s a JOIN %s m ON m.productattribute_id = a.id "+
			"WHERE m.productattributeset_id = ANY($1) ORDER BY m.productattributeset_id, m.id",
		attributeColumns,
		sanitizeIdentifier(r.tables.Attributes),
		sanitizeIdentifier(r.tables.AttributeSetMembers),
	)
}

// GetAttributeSet loads one set and its attributes.
func (r *PostgresAttributeSetStore) GetAttributeSet(ctx context.Context, id int64) (*attrschema.AttributeSet, error) {
	set, err := scanSet(r.pool.QueryRow(ctx, r.setQuery(), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, attrschema.NewAttributeSetNotFoundError(id)
		}
		return nil, attrschema.NewStoreError(fmt.Sprintf("failed to load attribute set %d", id), err)
	}

	if err := r.loadAttributes(ctx, map[int64]*attrschema.AttributeSet{set.ID: set}); err != nil {
		return nil, err
	}
	return set, nil
}

// ListAttributeSets loads every set ordered by name.
func (r *PostgresAttributeSetStore) ListAttributeSets(ctx context.Context) ([]*attrschema.AttributeSet, error) {
	rows, err := r.pool.Query(ctx, r.listQuery())
	if err != nil {
		return nil, attrschema.NewStoreError("failed to list attribute sets", err)
	}
	defer rows.Close()

	var sets []*attrschema.AttributeSet
	byID := make(map[int64]*attrschema.AttributeSet)
	for rows.Next() {
		set, err := scanSet(rows)
		if err != nil {
			return nil, attrschema.NewStoreError("failed to scan attribute set row", err)
		}
		sets = append(sets, set)
		byID[set.ID] = set
	}
	if err := rows.Err(); err != nil {
		return nil, attrschema.NewStoreError("error iterating attribute set rows", err)
	}
	rows.Close()

	if len(sets) == 0 {
		return []*attrschema.AttributeSet{}, nil
	}
	if err := r.loadAttributes(ctx, byID); err != nil {
		return nil, err
	}
	return sets, nil
}

func (r *PostgresAttributeSetStore) loadAttributes(ctx context.Context, sets map[int64]*attrschema.AttributeSet) error {
	ids := make([]int64, 0, len(sets))
	for id, set := range sets {
		ids = append(ids, id)
		set.Attributes = []attrschema.AttributeDefinition{}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows, err := r.pool.Query(ctx, r.attributesQuery(), ids)
	if err != nil {
		return attrschema.NewStoreError("failed to load attribute definitions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			setID                  int64
			def                    attrschema.AttributeDefinition
			description            *string
			attrType               string
			defaultRaw, optionsRaw []byte
			rulesRaw               []byte
		)
		if err := rows.Scan(&setID, &def.ID, &def.Code, &def.Name, &description, &attrType, &def.IsRequired,
			&defaultRaw, &optionsRaw, &rulesRaw); err != nil {
			return attrschema.NewStoreError("failed to scan attribute row", err)
		}
		if description != nil {
			def.Description = *description
		}
		def.Type = attrschema.AttributeType(attrType)

		if err := decodeAttributeJSON(&def, defaultRaw, optionsRaw, rulesRaw); err != nil {
			return attrschema.NewAttributeSetInvalidError(setID, err)
		}

		set, ok := sets[setID]
		if !ok {
			continue
		}
		set.Attributes = append(set.Attributes, def)
	}
	if err := rows.Err(); err != nil {
		return attrschema.NewStoreError("error iterating attribute rows", err)
	}

	zap.S().Debugw("loaded attribute definitions", "attribute_sets", ids)
	return nil
}

func scanSet(row pgx.Row) (*attrschema.AttributeSet, error) {
	var set attrschema.AttributeSet
	if err := row.Scan(&set.ID, &set.Name, &set.Code, &set.Description, &set.IsActive, &set.Category, &set.Brand); err != nil {
		return nil, err
	}
	return &set, nil
}

// decodeAttributeJSON decodes the jsonb columns of an attribute row. SQL NULL
// and JSON null both leave the field unset.
func decodeAttributeJSON(def *attrschema.AttributeDefinition, defaultRaw, optionsRaw, rulesRaw []byte) error {
	if len(defaultRaw) > 0 {
		if err := json.Unmarshal(defaultRaw, &def.DefaultValue); err != nil {
			return fmt.Errorf("attribute %s: default_value: %w", def.Code, err)
		}
	}
	if len(optionsRaw) > 0 {
		if err := json.Unmarshal(optionsRaw, &def.Options); err != nil {
			return fmt.Errorf("attribute %s: options: %w", def.Code, err)
		}
	}
	if len(rulesRaw) > 0 {
		if err := json.Unmarshal(rulesRaw, &def.ValidationRules); err != nil {
			return fmt.Errorf("attribute %s: validation_rules: %w", def.Code, err)
		}
	}
	return nil
}
