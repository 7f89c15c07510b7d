package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldlens/fieldlens/internal/schema"
)

const testConfig = `
server:
  host: 0.0.0.0
  port: 8080

database:
  url: postgres://localhost/fieldlens_test

cache:
  capacity: 256
  ttl: 1m

resources:
  - name: Teacher
    table: teachers
    fields:
      - name: id
      - name: name
      - name: school_id
        write_only: true
      - name: school
        relation:
          kind: belongs_to
          target: School
  - name: School
    table: schools
    fields:
      - name: id
      - name: name
      - name: teachers
        relation:
          kind: has_many
          target: Teacher
          foreign_key: school_id
`

func writeTestConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fieldlens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost:3000", cfg.Server.Addr())
	assert.Equal(t, 1024, cfg.Cache.Capacity)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Empty(t, cfg.Resources)
}

func TestLoad(t *testing.T) {
	dir := writeTestConfig(t, testConfig)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "postgres://localhost/fieldlens_test", cfg.Database.URL)
	assert.Equal(t, 256, cfg.Cache.Capacity)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	require.Len(t, cfg.Resources, 2)
}

func TestDatabaseURLEnvOverride(t *testing.T) {
	dir := writeTestConfig(t, testConfig)
	cfg, err := Load(dir)
	require.NoError(t, err)

	t.Setenv("DATABASE_URL", "postgres://db-host/production")
	assert.Equal(t, "postgres://db-host/production", cfg.DatabaseURL())
}

func TestBuildRegistry(t *testing.T) {
	dir := writeTestConfig(t, testConfig)
	cfg, err := Load(dir)
	require.NoError(t, err)

	registry, err := cfg.BuildRegistry()
	require.NoError(t, err)
	assert.Equal(t, 2, registry.Count())

	teacher, ok := registry.Get("Teacher")
	require.True(t, ok)
	assert.True(t, teacher.Fields["school_id"].WriteOnly)

	school := teacher.Fields["school"]
	require.NotNil(t, school.Relation)
	assert.Equal(t, schema.RelationBelongsTo, school.Relation.Kind)
	assert.Equal(t, "School", school.Relation.Target)

	schoolNode, ok := registry.Get("School")
	require.True(t, ok)
	assert.Equal(t, "school_id", schoolNode.Fields["teachers"].Relation.ForeignKey)
}

func TestBuildRegistryRejectsUnknownKind(t *testing.T) {
	cfg := &Config{
		Resources: []ResourceConfig{{
			Name:  "Widget",
			Table: "widgets",
			Fields: []FieldConfig{{
				Name:     "parts",
				Relation: &RelationConfig{Kind: "many_to_many", Target: "Part"},
			}},
		}},
	}

	_, err := cfg.BuildRegistry()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown relation kind")
}

func TestBuildRegistryRejectsUnresolvedTarget(t *testing.T) {
	cfg := &Config{
		Resources: []ResourceConfig{{
			Name:  "Widget",
			Table: "widgets",
			Fields: []FieldConfig{{
				Name:     "maker",
				Relation: &RelationConfig{Kind: "belongs_to", Target: "Maker"},
			}},
		}},
	}

	_, err := cfg.BuildRegistry()
	require.Error(t, err)
}
