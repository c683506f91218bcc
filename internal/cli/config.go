package cli

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const envMarker = "%%"

const configFileStub = `version: "1"
migrations:
  # any URL github.com/xo/dburl understands, or yaml://<dir> for a flat file store
  database_url: "%%DATABASE_URL%%"
  local_folder: ./migrations
  repository: default
  lock:
    redis_url: ""
    key: ""
`

var (
	ErrDatabaseURLMissing = errors.New("database url was not defined")
	ErrFolderMissing      = errors.New("migrations folder was not defined")
)

type (
	lockSection struct {
		RedisURL string `yaml:"redis_url"`
		Key      string `yaml:"key"`
	}

	migrationsSection struct {
		LocalFolder string      `yaml:"local_folder"`
		DatabaseURL string      `yaml:"database_url"`
		Repository  string      `yaml:"repository"`
		Lock        lockSection `yaml:"lock"`
	}

	configFile struct {
		Version    string            `yaml:"version"`
		Migrations migrationsSection `yaml:"migrations"`
	}
)

// fromEnv resolves a %%NAME%% value from the environment, anything else is returned as is.
func fromEnv(v string) string {
	if len(v) > 2*len(envMarker) && strings.HasPrefix(v, envMarker) && strings.HasSuffix(v, envMarker) {
		return os.Getenv(strings.TrimSuffix(strings.TrimPrefix(v, envMarker), envMarker))
	}

	return v
}

func createConfigFromYaml(path string) (Config, error) {
	var cfg Config

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "could not read shale configuration file")
	}

	var cfgFile configFile
	if err := yaml.Unmarshal(b, &cfgFile); err != nil {
		return cfg, errors.Wrap(err, "could not parse shale configuration file")
	}

	cfg.DatabaseURL = fromEnv(cfgFile.Migrations.DatabaseURL)
	cfg.MigrationsFolder = fromEnv(cfgFile.Migrations.LocalFolder)
	cfg.Repository = fromEnv(cfgFile.Migrations.Repository)
	cfg.RedisURL = fromEnv(cfgFile.Migrations.Lock.RedisURL)
	cfg.LockKey = fromEnv(cfgFile.Migrations.Lock.Key)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (cfg Config) validate() error {
	if cfg.DatabaseURL == "" {
		return ErrDatabaseURLMissing
	}

	if cfg.MigrationsFolder == "" {
		return ErrFolderMissing
	}

	return nil
}

func InitCfg(path string) error {
	if FileExists(path) {
		return errors.Errorf("config file [%s] already exists", path)
	}

	if err := os.WriteFile(path, []byte(configFileStub), 0o644); err != nil {
		return errors.Wrap(err, "could not create config file")
	}

	return nil
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
