package source

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/denismitr/shale/logger"
	"github.com/denismitr/shale/migration"
	"github.com/pkg/errors"
)

const DefaultMigrationsFolder = "./migrations"

const (
	sqlExtension  = ".sql"
	upSuffix      = "up"
	downSuffix    = "down"
	upExtension   = "." + upSuffix + sqlExtension
	downExtension = "." + downSuffix + sqlExtension
)

var fileNameRegexp = regexp.MustCompile(`^(\d+)_(\w+)\.(up|down)\.sql$`)

type fileKey struct {
	position int
	name     string
}

func (k fileKey) base() string {
	return strconv.Itoa(k.position) + "_" + k.name
}

type scripts struct {
	up, down string
}

// LocalFolder reads <position>_<name>.up.sql and <position>_<name>.down.sql pairs.
type LocalFolder struct {
	folder string
	lg     logger.Logger
	opts   []migration.Option
}

var _ Source = (*LocalFolder)(nil)

// NewLocalFolder creates a folder source. opts are applied to every migration read from it.
func NewLocalFolder(folder string, lg logger.Logger, opts ...migration.Option) *LocalFolder {
	if lg == nil {
		lg = logger.NullLogger{}
	}

	return &LocalFolder{folder: folder, lg: lg, opts: opts}
}

func (lf *LocalFolder) IsValid() bool {
	info, err := os.Stat(lf.folder)
	if err != nil {
		return false
	}

	return info.IsDir()
}

func (lf *LocalFolder) AlreadyExists(name string) bool {
	keys, err := lf.keys()
	if err != nil {
		return false
	}

	for k := range keys {
		if k.name == name {
			return true
		}
	}

	return false
}

// Create writes empty script files for a new migration.
func (lf *LocalFolder) Create(position int, name string, withDown bool) (*migration.Migration, error) {
	if !fileNameRegexp.MatchString(strconv.Itoa(position) + "_" + name + upExtension) {
		return nil, errors.Wrapf(ErrNotAMigrationFile, "invalid migration name [%s]", name)
	}

	if lf.AlreadyExists(name) {
		return nil, errors.Wrapf(ErrAlreadyExists, "%s", name)
	}

	if err := os.MkdirAll(lf.folder, 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not create folder [%s]", lf.folder)
	}

	key := fileKey{position: position, name: name}
	files := []string{key.base() + upExtension}
	if withDown {
		files = append(files, key.base()+downExtension)
	}

	for _, file := range files {
		path := filepath.Join(lf.folder, file)
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return nil, errors.Wrapf(err, "could not create file [%s]", path)
		}

		lf.lg.Debugf("created %s", path)
	}

	return migration.New(position, name, nil, lf.opts...), nil
}

func (lf *LocalFolder) keys() (map[fileKey]*scripts, error) {
	entries, err := os.ReadDir(lf.folder)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read migrations from folder %s", lf.folder)
	}

	keys := make(map[fileKey]*scripts)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sqlExtension) {
			continue
		}

		matches := fileNameRegexp.FindStringSubmatch(entry.Name())
		if matches == nil {
			return nil, errors.Wrapf(ErrNotAMigrationFile, "%s", entry.Name())
		}

		position, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, errors.Wrapf(ErrNotAMigrationFile, "%s: %v", entry.Name(), err)
		}

		key := fileKey{position: position, name: matches[2]}
		s, ok := keys[key]
		if !ok {
			s = &scripts{}
			keys[key] = s
		}

		path := filepath.Join(lf.folder, entry.Name())
		if matches[3] == upSuffix {
			s.up = path
		} else {
			s.down = path
		}
	}

	return keys, nil
}

type readResult struct {
	m   *migration.Migration
	err error
}

// Select reads every migration of the folder, sorted by position and name.
func (lf *LocalFolder) Select(ctx context.Context) (migration.Migrations, error) {
	keys, err := lf.keys()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int, len(keys))
	for k := range keys {
		seen[k.name]++
		if seen[k.name] > 1 {
			return nil, errors.Wrapf(ErrTooManyFilesForKey, "migration name [%s] is used more than once", k.name)
		}
	}

	results := make(chan readResult, len(keys))
	var wg sync.WaitGroup

	for k, s := range keys {
		wg.Add(1)
		go func(key fileKey, s *scripts) {
			defer wg.Done()

			m, err := lf.readOne(key, s)
			if err != nil {
				err = errors.Wrapf(err, "with key %s", key.base())
				lf.lg.Error(err)
			}

			results <- readResult{m: m, err: err}
		}(k, s)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var result migration.Migrations

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r, ok := <-results:
			if !ok {
				sort.Sort(result)
				return result, nil
			}

			if r.err != nil {
				return nil, r.err
			}

			result = append(result, r.m)
		}
	}
}

func (lf *LocalFolder) readOne(key fileKey, s *scripts) (*migration.Migration, error) {
	if s.up == "" {
		return nil, ErrMissingUpScript
	}

	up, err := os.ReadFile(s.up)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", s.up)
	}

	var down []byte
	if s.down != "" {
		if down, err = os.ReadFile(s.down); err != nil {
			return nil, errors.Wrapf(err, "could not read %s", s.down)
		}
	}

	upStatements := SplitStatements(string(up))
	downStatements := SplitStatements(string(down))

	return migration.New(key.position, key.name, func(a *migration.Actions) {
		a.Up(scriptAction(upStatements))
		if len(downStatements) > 0 {
			a.Down(scriptAction(downStatements))
		}
	}, lf.opts...), nil
}
