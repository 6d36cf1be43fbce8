package module_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/module"
	"github.com/yaramod/yaramod-go/symbol"
)

const peSchema = `{
  "kind": "struct",
  "name": "pe",
  "attributes": [
    {"kind": "value", "name": "number_of_sections", "type": "int"},
    {"kind": "array", "name": "sections", "element_type": "object", "element_structure": [
      {"kind": "value", "name": "name", "type": "string"}
    ]}
  ]
}`

const deprecatedSchema = `{
  "kind": "struct",
  "name": "old_pe",
  "deprecated": "true",
  "attributes": [
    {"kind": "value", "name": "legacy_field", "type": "int"}
  ]
}`

func writeSchema(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func TestPoolLoadsSchemaAndResolvesFields(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "pe.json", peSchema)

	pool := module.NewPool(module.PoolConfig{Dir: dir, Features: module.Basic})
	require.NoError(t, pool.LoadAll(context.Background()))

	root, err := pool.Resolve("pe")
	require.NoError(t, err)

	sections, ok := root.Attr("sections")
	require.True(t, ok)
	require.Equal(t, symbol.KindArray, sections.Kind())
}

func TestPoolFiltersDeprecatedByDefault(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "old_pe.json", deprecatedSchema)

	pool := module.NewPool(module.PoolConfig{Dir: dir, Features: module.Basic})
	require.NoError(t, pool.LoadAll(context.Background()))

	_, ok := pool.Module("old_pe")
	require.False(t, ok)
}

func TestPoolIncludesDeprecatedWhenRequested(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "old_pe.json", deprecatedSchema)

	pool := module.NewPool(module.PoolConfig{Dir: dir, Features: module.Everything})
	require.NoError(t, pool.LoadAll(context.Background()))

	_, ok := pool.Module("old_pe")
	require.True(t, ok)
}

func TestPoolUnknownModuleErrors(t *testing.T) {
	pool := module.NewPool(module.PoolConfig{Dir: t.TempDir()})
	require.NoError(t, pool.LoadAll(context.Background()))
	_, err := pool.Resolve("nonexistent")
	require.Error(t, err)
}

func TestPoolMinVersionSkipsOlderSchema(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "versioned.json", `{"kind": "struct", "name": "versioned", "version": "1.0.0"}`)

	minVer := semver.MustParse("2.0.0")
	pool := module.NewPool(module.PoolConfig{Dir: dir, Features: module.Basic, MinVersion: minVer})
	require.NoError(t, pool.LoadAll(context.Background()))

	_, ok := pool.Module("versioned")
	require.False(t, ok)
}

func TestPoolMinVersionAcceptsNewerSchema(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "versioned.json", `{"kind": "struct", "name": "versioned", "version": "2.5.0"}`)

	minVer := semver.MustParse("2.0.0")
	pool := module.NewPool(module.PoolConfig{Dir: dir, Features: module.Basic, MinVersion: minVer})
	require.NoError(t, pool.LoadAll(context.Background()))

	_, ok := pool.Module("versioned")
	require.True(t, ok)
}

func TestPoolMalformedVersionErrors(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "broken.json", `{"kind": "struct", "name": "broken", "version": "not-a-version"}`)

	pool := module.NewPool(module.PoolConfig{Dir: dir, Features: module.Basic})
	err := pool.LoadAll(context.Background())
	require.Error(t, err)
}

func TestPoolAddBypassesFileDiscovery(t *testing.T) {
	pool := module.NewPool(module.PoolConfig{})
	pool.Add("inline", module.SchemaNode{
		Kind: "struct",
		Name: "inline",
		Attributes: []module.SchemaNode{
			{Kind: "value", Name: "field", Type: "int"},
		},
	})
	root, err := pool.Resolve("inline")
	require.NoError(t, err)
	field, ok := root.Attr("field")
	require.True(t, ok)
	require.Equal(t, symbol.Int, field.ValueType())
}
