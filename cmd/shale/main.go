package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/denismitr/shale/internal/cli"
	"github.com/denismitr/shale/migration"
	"github.com/logrusorgru/aurora/v3"
	"github.com/pkg/errors"
)

const defaultConfigFile = "shale.yml"

func fail(msg string) {
	fmt.Println(aurora.Red("shale-cli: "), msg)
	os.Exit(1)
}

func report(migrations migration.Migrations, verb string) string {
	if len(migrations) == 0 {
		return "nothing to migrate"
	}

	for _, m := range migrations {
		fmt.Println(aurora.Cyan("shale-cli: "), verb, m.String())
	}

	return "all done"
}

type command struct {
	create   string
	withDown bool
	up       bool
	down     bool
	refresh  bool
	status   bool
}

func run(app *cli.App, cmd command, action cli.ActionConfig, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch {
	case cmd.create != "":
		m, err := app.CreateMigration(cmd.create, cmd.withDown)
		if err != nil {
			return "", err
		}
		return "created migration " + m.String(), nil
	case cmd.up:
		migrated, err := app.Migrate(ctx, action)
		if err != nil {
			return "", err
		}
		return report(migrated, "migrated"), nil
	case cmd.down:
		rolledBack, err := app.Rollback(ctx, action)
		if err != nil {
			return "", err
		}
		return report(rolledBack, "rolled back"), nil
	case cmd.refresh:
		rolledBack, migrated, err := app.Refresh(ctx, action)
		if err != nil {
			return "", err
		}
		for _, m := range rolledBack {
			fmt.Println(aurora.Cyan("shale-cli: "), "rolled back", m.String())
		}
		return report(migrated, "migrated"), nil
	case cmd.status:
		status, err := app.Status(ctx)
		if err != nil {
			return "", err
		}
		for _, s := range status {
			state := aurora.Yellow("pending")
			if s.Applied {
				state = aurora.Green("applied")
			}
			fmt.Printf("%s #%d %s [%s]\n", state, s.Position, s.Name, s.Repository)
		}
		return "all done", nil
	}

	return "", errors.New("unknown command")
}

func main() {
	upCmd := flag.Bool("up", false, "apply pending migrations")
	downCmd := flag.Bool("down", false, "revert applied migrations")
	refreshCmd := flag.Bool("refresh", false, "revert and then apply the migrations again")
	statusCmd := flag.Bool("status", false, "show which migrations are applied")
	createCmd := flag.String("create", "", "create empty script files for a new migration with the given name")
	initCmd := flag.Bool("init", false, "write a config file stub")

	configFile := flag.String("config", defaultConfigFile, "path to the config file")
	databaseURL := flag.String("db", "", "database URL, overrides the config file")
	folder := flag.String("folder", "", "migrations folder, overrides the config file")
	steps := flag.Int("steps", 0, "maximum number of migrations to perform")
	names := flag.String("names", "", "comma separated migration names to limit the batch to")
	upTo := flag.String("up-to", "", "apply migrations up to and including this position")
	downTo := flag.String("down-to", "", "revert migrations above this position")
	withDown := flag.Bool("with-down", true, "create a down script as well")
	printSQL := flag.Bool("sql", false, "print executed SQL")
	debug := flag.Bool("debug", false, "print debug output")
	timeout := flag.Duration("timeout", 120*time.Second, "timeout of the whole run")

	flag.Parse()

	if *initCmd {
		if err := cli.InitCfg(*configFile); err != nil {
			fail(err.Error())
		}
		fmt.Println(aurora.Green("shale-cli: "), "created "+*configFile)
		return
	}

	overrides := cli.Config{
		DatabaseURL:      *databaseURL,
		MigrationsFolder: *folder,
		PrintSQL:         *printSQL,
		Debug:            *debug,
	}

	var (
		app    *cli.App
		closer cli.CloserFunc
		err    error
	)

	if cli.FileExists(*configFile) {
		app, closer, err = cli.NewFromYaml(*configFile, overrides)
	} else {
		app, closer, err = cli.New(overrides)
	}

	if err != nil {
		fail(err.Error())
	}

	action := cli.ActionConfig{Steps: *steps, UpTo: *upTo, DownTo: *downTo}
	if *names != "" {
		action.Names = strings.Split(*names, ",")
	}

	cmd := command{create: *createCmd, withDown: *withDown, up: *upCmd, down: *downCmd, refresh: *refreshCmd, status: *statusCmd}
	msg, err := run(app, cmd, action, *timeout)

	if closeErr := closer(); closeErr != nil {
		fmt.Println(aurora.Red("shale-cli: "), closeErr.Error())
	}

	if err != nil {
		fail(err.Error())
	}

	fmt.Println(aurora.Green("shale-cli: "), msg)
}
