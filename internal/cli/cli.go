package cli

import (
	"context"
	"time"

	"github.com/denismitr/shale"
	"github.com/denismitr/shale/internal/source"
	"github.com/denismitr/shale/migration"
	"github.com/pkg/errors"
)

var (
	ErrMigrationAlreadyExists = errors.New("migration already exists")
	ErrFolderInvalid          = errors.New("migrations folder is invalid")
	ErrSourceTypeIsNotValid   = errors.New("source type is not valid")
)

type (
	CloserFunc func() error

	Config struct {
		DatabaseURL      string
		MigrationsFolder string
		Repository       string
		RedisURL         string
		LockKey          string
		PrintSQL         bool
		Debug            bool
	}

	ActionConfig struct {
		Steps  int
		Names  []string
		UpTo   string
		DownTo string
	}

	App struct {
		source source.Source
		runner *shale.Runner
		now    func() time.Time
	}
)

func (cfg Config) repository() string {
	if cfg.Repository == "" {
		return migration.DefaultRepository
	}

	return cfg.Repository
}

func (ac ActionConfig) configurators() ([]shale.ActionConfigurator, error) {
	return shale.CreateConfigurators(ac.Steps, ac.Names, ac.UpTo, ac.DownTo)
}

// NewFromYaml reads the config file at path and creates the app. Flag values
// in overrides replace the file values when set.
func NewFromYaml(path string, overrides Config) (*App, CloserFunc, error) {
	cfg, err := createConfigFromYaml(path)
	if err != nil {
		return nil, nil, err
	}

	cfg.PrintSQL = overrides.PrintSQL
	cfg.Debug = overrides.Debug
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.MigrationsFolder != "" {
		cfg.MigrationsFolder = overrides.MigrationsFolder
	}

	return New(cfg)
}

func New(cfg Config) (*App, CloserFunc, error) {
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	r, closer, err := createRunner(cfg, defaultFactories())
	if err != nil {
		return nil, nil, err
	}

	s := r.Source()
	if s == nil {
		_ = closer()
		return nil, nil, ErrSourceTypeIsNotValid
	}

	return &App{source: s, runner: r, now: time.Now}, CloserFunc(closer), nil
}

// CreateMigration writes empty script files positioned at the current unix time.
func (app *App) CreateMigration(name string, withRollback bool) (*migration.Migration, error) {
	if !app.source.IsValid() {
		return nil, ErrFolderInvalid
	}

	if app.source.AlreadyExists(name) {
		return nil, errors.Wrapf(ErrMigrationAlreadyExists, "name [%s]", name)
	}

	return app.source.Create(int(app.now().Unix()), name, withRollback)
}

func (app *App) Migrate(ctx context.Context, cfg ActionConfig) (migration.Migrations, error) {
	configurators, err := cfg.configurators()
	if err != nil {
		return nil, err
	}

	return app.runner.Up(ctx, configurators...)
}

func (app *App) Rollback(ctx context.Context, cfg ActionConfig) (migration.Migrations, error) {
	configurators, err := cfg.configurators()
	if err != nil {
		return nil, err
	}

	return app.runner.Down(ctx, configurators...)
}

func (app *App) Refresh(ctx context.Context, cfg ActionConfig) (migration.Migrations, migration.Migrations, error) {
	configurators, err := cfg.configurators()
	if err != nil {
		return nil, nil, err
	}

	return app.runner.Refresh(ctx, configurators...)
}

func (app *App) Status(ctx context.Context) ([]shale.MigrationStatus, error) {
	return app.runner.Status(ctx)
}
