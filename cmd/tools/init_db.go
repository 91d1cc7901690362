package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"

	"github.com/lychee-technology/attrschema"
	"github.com/lychee-technology/attrschema/factory"
	"github.com/lychee-technology/attrschema/internal"
)

type initDBOptions struct {
	db     attrschema.DatabaseConfig
	setDir string
}

// txBeginner is satisfied by *pgxpool.Pool and pgxmock pools.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func runInitDB(args []string) error {
	flags := pflag.NewFlagSet("init-db", pflag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: attrschema-tools init-db [options]")
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}

	defaults := attrschema.DefaultConfig().Database
	opts := initDBOptions{db: defaults}
	flags.StringVar(&opts.db.Host, "db-host", getenvDefault("DB_HOST", defaults.Host), "database host")
	flags.IntVar(&opts.db.Port, "db-port", getenvDefaultInt("DB_PORT", defaults.Port), "database port")
	flags.StringVar(&opts.db.Database, "db-name", getenvDefault("DB_NAME", defaults.Database), "database name")
	flags.StringVar(&opts.db.Username, "db-user", getenvDefault("DB_USER", defaults.Username), "database user")
	flags.StringVar(&opts.db.Password, "db-password", getenvDefault("DB_PASSWORD", ""), "database password")
	flags.StringVar(&opts.db.SSLMode, "db-ssl-mode", getenvDefault("DB_SSL_MODE", defaults.SSLMode), "database sslmode")
	flags.StringVar(&opts.db.TableNames.Attributes, "attributes-table", getenvDefault("ATTRIBUTES_TABLE", defaults.TableNames.Attributes), "attribute definitions table name")
	flags.StringVar(&opts.db.TableNames.AttributeSets, "attribute-sets-table", getenvDefault("ATTRIBUTE_SETS_TABLE", defaults.TableNames.AttributeSets), "attribute sets table name")
	flags.StringVar(&opts.db.TableNames.AttributeSetMembers, "attribute-set-members-table", getenvDefault("ATTRIBUTE_SET_MEMBERS_TABLE", defaults.TableNames.AttributeSetMembers), "attribute set membership table name")
	flags.StringVar(&opts.setDir, "set-dir", getenvDefault("STORE_DIR", ""), "Directory containing attribute set JSON files to import (optional)")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, factory.ConnString(opts.db, opts.db.Password))
	if err != nil {
		return fmt.Errorf("create connection pool: %w", err)
	}
	defer pool.Close()

	var sets []*attrschema.AttributeSet
	if opts.setDir != "" {
		paths, err := collectSetFiles([]string{opts.setDir})
		if err != nil {
			return fmt.Errorf("read set directory(%s): %w", opts.setDir, err)
		}
		for _, path := range paths {
			set, err := internal.ReadAttributeSetFile(path)
			if err != nil {
				return err
			}
			sets = append(sets, set)
		}
	}

	return initDatabase(ctx, pool, opts.db.TableNames, sets, os.Stdout)
}

func initDatabase(ctx context.Context, db txBeginner, tables attrschema.TableNames, sets []*attrschema.AttributeSet, out io.Writer) error {
	if err := withTx(ctx, db, func(tx pgx.Tx) error {
		if err := ensureTables(ctx, tx, tables, out); err != nil {
			return err
		}
		for _, set := range sets {
			if err := importSet(ctx, tx, tables, set, out); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	fmt.Fprintln(out, "Database initialized successfully.")
	return nil
}

func ensureTables(ctx context.Context, tx pgx.Tx, tables attrschema.TableNames, out io.Writer) error {
	attributes := quoteIdentifier(tables.Attributes)
	sets := quoteIdentifier(tables.AttributeSets)
	members := quoteIdentifier(tables.AttributeSetMembers)

	ddlAttributes := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id               BIGSERIAL PRIMARY KEY,
		code             VARCHAR(100) NOT NULL UNIQUE,
		name             VARCHAR(255) NOT NULL,
		description      TEXT,
		type             VARCHAR(20) NOT NULL,
		is_required      BOOLEAN NOT NULL DEFAULT FALSE,
		default_value    JSONB,
		options          JSONB NOT NULL DEFAULT '[]',
		validation_rules JSONB NOT NULL DEFAULT '{}'
	)`, attributes)
	if _, err := tx.Exec(ctx, ddlAttributes); err != nil {
		return fmt.Errorf("ensure attributes table: %w", err)
	}
	fmt.Fprintf(out, "Created attributes table: %s\n", tables.Attributes)

	ddlSets := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id          BIGSERIAL PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		code        VARCHAR(100) NOT NULL,
		description TEXT,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		category_id BIGINT,
		brand_id    BIGINT
	)`, sets)
	if _, err := tx.Exec(ctx, ddlSets); err != nil {
		return fmt.Errorf("ensure attribute sets table: %w", err)
	}
	fmt.Fprintf(out, "Created attribute sets table: %s\n", tables.AttributeSets)

	ddlMembers := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id                     BIGSERIAL PRIMARY KEY,
		productattributeset_id BIGINT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
		productattribute_id    BIGINT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
		UNIQUE (productattributeset_id, productattribute_id)
	)`, members, sets, attributes)
	if _, err := tx.Exec(ctx, ddlMembers); err != nil {
		return fmt.Errorf("ensure attribute set members table: %w", err)
	}
	fmt.Fprintf(out, "Created attribute set members table: %s\n", tables.AttributeSetMembers)

	idx := quoteIdentifier(makeIndexName(tables.AttributeSetMembers, "set"))
	createIdx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (productattributeset_id, id)`, idx, members)
	if _, err := tx.Exec(ctx, createIdx); err != nil {
		return fmt.Errorf("create membership index: %w", err)
	}

	return nil
}

// importSet inserts the set, its attributes and the membership rows. Members
// are inserted in declared order so the membership ids preserve it.
func importSet(ctx context.Context, tx pgx.Tx, tables attrschema.TableNames, set *attrschema.AttributeSet, out io.Writer) error {
	insertSet := fmt.Sprintf(
		`INSERT INTO %s (id, name, code, description, is_active, category_id, brand_id) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
		quoteIdentifier(tables.AttributeSets),
	)
	result, err := tx.Exec(ctx, insertSet, set.ID, set.Name, set.Code, set.Description, set.IsActive, set.Category, set.Brand)
	if err != nil {
		return fmt.Errorf("insert attribute set %d: %w", set.ID, err)
	}
	if result.RowsAffected() == 0 {
		fmt.Fprintf(out, "Attribute set already exists, id: %d\n", set.ID)
		return nil
	}

	insertAttribute := fmt.Sprintf(
		`INSERT INTO %s (id, code, name, description, type, is_required, default_value, options, validation_rules) `+
			`VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9::jsonb) ON CONFLICT (id) DO NOTHING`,
		quoteIdentifier(tables.Attributes),
	)
	insertMember := fmt.Sprintf(
		`INSERT INTO %s (productattributeset_id, productattribute_id) VALUES ($1, $2) ON CONFLICT (productattributeset_id, productattribute_id) DO NOTHING`,
		quoteIdentifier(tables.AttributeSetMembers),
	)

	for _, def := range set.Attributes {
		defaultValue, options, rules, err := attributeJSON(def)
		if err != nil {
			return err
		}
		var description *string
		if def.Description != "" {
			description = &def.Description
		}
		if _, err := tx.Exec(ctx, insertAttribute, def.ID, def.Code, def.Label(), description, string(def.Type), def.IsRequired,
			defaultValue, options, rules); err != nil {
			return fmt.Errorf("insert attribute %s: %w", def.Code, err)
		}
		if _, err := tx.Exec(ctx, insertMember, set.ID, def.ID); err != nil {
			return fmt.Errorf("insert membership %d/%s: %w", set.ID, def.Code, err)
		}
	}

	fmt.Fprintf(out, "Imported attribute set, id: %d, name: %s, attributes: %d\n", set.ID, set.Name, len(set.Attributes))
	return nil
}

// attributeJSON renders the jsonb columns. A nil default stays SQL NULL.
func attributeJSON(def attrschema.AttributeDefinition) (*string, string, string, error) {
	var defaultValue *string
	if def.DefaultValue != nil {
		encoded, err := json.Marshal(def.DefaultValue)
		if err != nil {
			return nil, "", "", fmt.Errorf("attribute %s: default_value: %w", def.Code, err)
		}
		s := string(encoded)
		defaultValue = &s
	}

	options := "[]"
	if len(def.Options) > 0 {
		encoded, err := json.Marshal(def.Options)
		if err != nil {
			return nil, "", "", fmt.Errorf("attribute %s: options: %w", def.Code, err)
		}
		options = string(encoded)
	}

	rules := "{}"
	if len(def.ValidationRules) > 0 {
		encoded, err := json.Marshal(def.ValidationRules)
		if err != nil {
			return nil, "", "", fmt.Errorf("attribute %s: validation_rules: %w", def.Code, err)
		}
		rules = string(encoded)
	}
	return defaultValue, options, rules, nil
}

func withTx(ctx context.Context, db txBeginner, fn func(pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w; rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func quoteIdentifier(name string) string {
	return pgx.Identifier(splitIdentifier(name)).Sanitize()
}

func splitIdentifier(name string) []string {
	parts := strings.Split(name, ".")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return []string{name}
	}
	return result
}

func makeIndexName(table string, suffix string) string {
	base := strings.ReplaceAll(table, ".", "_")
	base = strings.ReplaceAll(base, `"`, "")
	return fmt.Sprintf("%s_%s_idx", base, suffix)
}

func getenvDefaultInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}
