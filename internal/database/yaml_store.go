package database

import (
	"context"
	"os"
	"path/filepath"

	"github.com/denismitr/shale/migration"
	"github.com/denismitr/shale/schema"
	"github.com/pkg/errors"
)

const yamlExtension = ".yml"

// YAMLStore keeps every storage as a <name>.yml file holding a list of documents.
// It has no schema, so migrations against it are always satisfied.
type YAMLStore struct {
	dir string
}

var _ migration.Adapter = (*YAMLStore)(nil)
var _ migration.Schemaless = (*YAMLStore)(nil)

func NewYAMLStore(dir string) (*YAMLStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not create yaml store folder [%s]", dir)
	}

	return &YAMLStore{dir: dir}, nil
}

func (s *YAMLStore) Schemaless() bool {
	return true
}

func (s *YAMLStore) Dialect() schema.Dialect {
	return nil
}

func (s *YAMLStore) Exec(_ context.Context, query string, _ ...interface{}) error {
	return errors.Wrapf(schema.ErrDialectUnsupported, "yaml store cannot execute [%s]", query)
}

func (s *YAMLStore) Select(_ context.Context, _ interface{}, query string, _ ...interface{}) error {
	return errors.Wrapf(schema.ErrDialectUnsupported, "yaml store cannot query [%s]", query)
}

func (s *YAMLStore) path(name string) string {
	return filepath.Join(s.dir, name+yamlExtension)
}

func (s *YAMLStore) StorageExists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, errors.Wrapf(err, "could not stat [%s]", s.path(name))
}

// DestroyStorage removes a storage, removing an absent one is not an error.
func (s *YAMLStore) DestroyStorage(name string) error {
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "could not remove [%s]", s.path(name))
	}

	return nil
}
