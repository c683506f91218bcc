package database

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

type record map[string]interface{}

func load(s *YAMLStore, name string) ([]record, error) {
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []record
	err = yaml.Unmarshal(data, &records)

	return records, err
}

func save(s *YAMLStore, name string, records []record) error {
	data, err := yaml.Marshal(records)
	if err != nil {
		return err
	}

	return os.WriteFile(s.path(name), data, 0o644)
}

func TestYAMLStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewYAMLStore(t.TempDir())
	require.NoError(t, err)

	assert.True(t, store.Schemaless())
	assert.Nil(t, store.Dialect())

	exists, err := store.StorageExists(ctx, "people")
	require.NoError(t, err)
	assert.False(t, exists)

	records, err := load(store, "people")
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, save(store, "people", []record{{"name": "John", "age": 42}}))

	exists, err = store.StorageExists(ctx, "people")
	require.NoError(t, err)
	assert.True(t, exists)

	records, err = load(store, "people")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "John", records[0]["name"])
	assert.Equal(t, 42, records[0]["age"])

	require.NoError(t, store.DestroyStorage("people"))
	require.NoError(t, store.DestroyStorage("people"))

	exists, err = store.StorageExists(ctx, "people")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Error(t, store.Exec(ctx, "DROP TABLE people"))
}
