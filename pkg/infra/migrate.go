package infra

import (
	"errors"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// IMigrateTool applies the journal schema.
type IMigrateTool interface {
	// Migrate from current version to latest verion.
	Migrate(source string, connStr string) error
}

type migrateTool struct {
	mu sync.Mutex
}

var once sync.Once         // nolint
var singleton IMigrateTool // nolint

// GetMigrateTool get singleton instance for migrate tool
func GetMigrateTool() IMigrateTool { // nolint
	once.Do(func() {
		singleton = &migrateTool{}
	})
	return singleton
}

// Migrate runs every pending up migration. A dirty version is forced back one step first.
func (mt *migrateTool) Migrate(source string, connStr string) error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	zap.S().Infow("migrating", "source", source)

	mg, err := migrate.New(source, connStr)
	if err != nil {
		return err
	}
	defer mg.Close()

	version, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	if dirty {
		if err := mg.Force(int(version) - 1); err != nil {
			return err
		}
	}

	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	zap.S().Infow("migration done")
	return nil
}
