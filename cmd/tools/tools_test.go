package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/attrschema"
)

const shirtSetJSON = `{
	"id": 7,
	"name": "Shirts",
	"code": "shirts",
	"is_active": true,
	"attributes_detail": [
		{"id": 1, "code": "color", "name": "Color", "type": "select", "is_required": true,
		 "options": [{"value": "red", "label": "Red"}, {"value": "blue", "label": "Blue"}]},
		{"id": 2, "code": "weight", "name": "Weight", "type": "number", "is_required": false,
		 "validation_rules": {"min": 0, "max": 100}},
		{"id": 3, "code": "material", "name": "Material", "type": "text", "default_value": "cotton"}
	]
}`

const duplicateSetJSON = `{
	"id": 8,
	"name": "Mugs",
	"code": "mugs",
	"attributes_detail": [
		{"id": 1, "code": "color", "name": "Color", "type": "text"},
		{"id": 4, "code": "color", "name": "Colour", "type": "text"}
	]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	setPath := writeFile(t, dir, "7.json", shirtSetJSON)

	t.Run("valid record gets defaults", func(t *testing.T) {
		record := writeFile(t, t.TempDir(), "record.json", `{"color": "red", "weight": 12}`)
		var out bytes.Buffer

		err := runValidate([]string{"--set-file", setPath, "--record", record}, &out)
		require.NoError(t, err)

		var result struct {
			Valid bool           `json:"valid"`
			Data  map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.True(t, result.Valid)
		assert.Equal(t, "red", result.Data["color"])
		assert.Equal(t, float64(12), result.Data["weight"])
		assert.Equal(t, "cotton", result.Data["material"])
	})

	t.Run("invalid record lists errors", func(t *testing.T) {
		record := writeFile(t, t.TempDir(), "record.json", `{"color": "green", "weight": 150}`)
		var out bytes.Buffer

		err := runValidate([]string{"-f", setPath, "-r", record}, &out)
		require.ErrorIs(t, err, errRecordInvalid)

		var result struct {
			Valid  bool                   `json:"valid"`
			Errors attrschema.FieldErrors `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 2)
		assert.Equal(t, "color", result.Errors[0].Code)
		assert.Equal(t, "weight", result.Errors[1].Code)
	})

	t.Run("set directory with id", func(t *testing.T) {
		record := writeFile(t, t.TempDir(), "record.json", `{"color": "blue"}`)
		var out bytes.Buffer

		err := runValidate([]string{"--set-dir", dir, "--set-id", "7", "--record", record}, &out)
		require.NoError(t, err)
	})

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing set", args: []string{"--record", "-"}, wantErr: "either --set-file or --set-dir"},
		{name: "unknown mode", args: []string{"--set-file", setPath, "--mode", "patch"}, wantErr: `unknown mode "patch"`},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORE_DIR", "")
			err := runValidate(tt.args, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("help is not an error", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runValidate([]string{"--help"}, &out))
		assert.Contains(t, out.String(), "--set-file")
	})
}

func TestReadRecord(t *testing.T) {
	record, err := readRecord("-", strings.NewReader(`{"color": "red"}`))
	require.NoError(t, err)
	assert.Equal(t, attrschema.AttributesData{"color": "red"}, record)

	record, err = readRecord("-", strings.NewReader(`null`))
	require.NoError(t, err)
	assert.Equal(t, attrschema.AttributesData{}, record)

	_, err = readRecord("-", strings.NewReader(`[1, 2]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse record JSON")
}

func TestRunLint(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "7.json", shirtSetJSON)
	writeFile(t, dir, "8.json", duplicateSetJSON)
	writeFile(t, dir, "README.md", "not a set")

	t.Run("reports diagnostics", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runLint([]string{dir}, &out))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, filepath.Join(dir, "7.json")+": ok (3 attributes)", lines[0])
		assert.True(t, strings.HasPrefix(lines[1], filepath.Join(dir, "8.json")+": color"))
	})

	t.Run("strict fails on diagnostics", func(t *testing.T) {
		err := runLint([]string{"--strict", dir}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 definition problem(s) found")
	})

	t.Run("strict passes clean files", func(t *testing.T) {
		require.NoError(t, runLint([]string{"--strict", filepath.Join(dir, "7.json")}, &bytes.Buffer{}))
	})

	t.Run("requires a path", func(t *testing.T) {
		require.Error(t, runLint(nil, &bytes.Buffer{}))
	})

	t.Run("malformed file", func(t *testing.T) {
		bad := writeFile(t, t.TempDir(), "bad.json", `{"id": 0}`)
		err := runLint([]string{bad}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), bad)
	})
}

func TestRunJSONSchema(t *testing.T) {
	setPath := writeFile(t, t.TempDir(), "7.json", shirtSetJSON)

	t.Run("stdout", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runJSONSchema([]string{"--set-file", setPath}, &out))

		var doc map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
		assert.Equal(t, "object", doc["type"])
		assert.Equal(t, []any{"color"}, doc["required"])
		props, ok := doc["properties"].(map[string]any)
		require.True(t, ok)
		assert.Len(t, props, 3)
	})

	t.Run("output file", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "nested", "shirts.schema.json")
		var out bytes.Buffer
		require.NoError(t, runJSONSchema([]string{"--set-file", setPath, "--out", target}, &out))
		assert.Contains(t, out.String(), target)

		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.True(t, json.Valid(data))
	})
}

type recordingPublisher struct {
	published []int64
	err       error
}

func (p *recordingPublisher) PutAttributeSet(ctx context.Context, set *attrschema.AttributeSet) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, set.ID)
	return nil
}

func TestPublishSets(t *testing.T) {
	dir := t.TempDir()
	shirts := writeFile(t, dir, "7.json", shirtSetJSON)
	mugs := writeFile(t, dir, "8.json", duplicateSetJSON)

	t.Run("publishes in order", func(t *testing.T) {
		publisher := &recordingPublisher{}
		var out bytes.Buffer
		require.NoError(t, publishSets(context.Background(), publisher, []string{shirts, mugs}, &out))
		assert.Equal(t, []int64{7, 8}, publisher.published)
		assert.Contains(t, out.String(), "Published attribute set 7 (Shirts)")
	})

	t.Run("malformed file publishes nothing", func(t *testing.T) {
		bad := writeFile(t, t.TempDir(), "bad.json", `{`)
		publisher := &recordingPublisher{}
		err := publishSets(context.Background(), publisher, []string{shirts, bad}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Empty(t, publisher.published)
	})

	t.Run("publisher error", func(t *testing.T) {
		publisher := &recordingPublisher{err: errors.New("access denied")}
		err := publishSets(context.Background(), publisher, []string{shirts}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access denied")
	})
}

func TestRunPublishRequiresBucket(t *testing.T) {
	t.Setenv("S3_BUCKET", "")
	setPath := writeFile(t, t.TempDir(), "7.json", shirtSetJSON)
	err := runPublish([]string{setPath}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestInitDatabase(t *testing.T) {
	tables := attrschema.DefaultConfig().Database.TableNames
	set, err := decodeShirts()
	require.NoError(t, err)

	t.Run("creates tables and imports sets", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		for i := 0; i < 3; i++ {
			mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))
		}
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectExec(`INSERT INTO "products_productattributeset" `).
			WithArgs(int64(7), "Shirts", "shirts", pgxmock.AnyArg(), true, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		for _, code := range []string{"color", "weight", "material"} {
			mock.ExpectExec(`INSERT INTO "products_productattribute" `).
				WithArgs(pgxmock.AnyArg(), code, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			mock.ExpectExec(`INSERT INTO "products_productattributeset_attributes" `).
				WithArgs(int64(7), pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}
		mock.ExpectCommit()

		var out bytes.Buffer
		require.NoError(t, initDatabase(context.Background(), mock, tables, []*attrschema.AttributeSet{set}, &out))
		assert.Contains(t, out.String(), "Imported attribute set, id: 7")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing set is skipped", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		for i := 0; i < 3; i++ {
			mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))
		}
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectExec(`INSERT INTO "products_productattributeset" `).
			WithArgs(int64(7), "Shirts", "shirts", pgxmock.AnyArg(), true, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mock.ExpectCommit()

		var out bytes.Buffer
		require.NoError(t, initDatabase(context.Background(), mock, tables, []*attrschema.AttributeSet{set}, &out))
		assert.Contains(t, out.String(), "Attribute set already exists, id: 7")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure rolls back", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnError(errors.New("permission denied"))
		mock.ExpectRollback()

		err = initDatabase(context.Background(), mock, tables, nil, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ensure attributes table")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAttributeJSON(t *testing.T) {
	set, err := decodeShirts()
	require.NoError(t, err)

	def, _ := set.Attribute("color")
	defaultValue, options, rules, err := attributeJSON(def)
	require.NoError(t, err)
	assert.Nil(t, defaultValue)
	assert.JSONEq(t, `[{"value":"red","label":"Red"},{"value":"blue","label":"Blue"}]`, options)
	assert.Equal(t, "{}", rules)

	def, _ = set.Attribute("material")
	defaultValue, options, _, err = attributeJSON(def)
	require.NoError(t, err)
	require.NotNil(t, defaultValue)
	assert.Equal(t, `"cotton"`, *defaultValue)
	assert.Equal(t, "[]", options)
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"catalog"."products_productattribute"`, quoteIdentifier("catalog.products_productattribute"))
	assert.Equal(t, "catalog_members_set_idx", makeIndexName("catalog.members", "set"))
}

func decodeShirts() (*attrschema.AttributeSet, error) {
	var set attrschema.AttributeSet
	if err := json.Unmarshal([]byte(shirtSetJSON), &set); err != nil {
		return nil, err
	}
	return &set, nil
}
