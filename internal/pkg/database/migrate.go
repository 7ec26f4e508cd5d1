package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

//go:embed migrations
var migrationsFS embed.FS

// Revision 一个迁移版本
// 版本号即 revision id，Previous 指向链上的前一个版本
type Revision struct {
	Version     uint   `json:"version"`
	Previous    uint   `json:"previous,omitempty"`
	HasPrevious bool   `json:"has_previous"`
	Identifier  string `json:"identifier"`
	Applied     bool   `json:"applied"`
}

// Migrator 数据库迁移管理器
// 每个版本由 up/down 两个 SQL 文件组成，按版本号线性排列
type Migrator struct {
	migrate *migrate.Migrate
	dir     string
}

// NewMigrator 根据 database.url 创建迁移管理器
func NewMigrator(databaseURL string) (*Migrator, error) {
	target, err := ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	dir := "migrations/" + string(target.Dialect)
	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, target.Migrate)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}

	return &Migrator{migrate: m, dir: dir}, nil
}

// Up 执行所有待执行的迁移
func (mm *Migrator) Up() error {
	log.Info().Msg("starting database migration up")

	err := mm.migrate.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("no migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Msg("database migrations completed")
	return nil
}

// Down 回滚 steps 个版本
func (mm *Migrator) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	log.Info().Int("steps", steps).Msg("rolling back migrations")

	if err := mm.migrate.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	return nil
}

// Reset 回滚全部迁移
func (mm *Migrator) Reset() error {
	log.Warn().Msg("rolling back all migrations")

	if err := mm.migrate.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to reset migrations: %w", err)
	}
	return nil
}

// Goto 迁移到指定版本（向上或向下）
func (mm *Migrator) Goto(version uint) error {
	log.Info().Uint("version", version).Msg("migrating to version")

	if err := mm.migrate.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate to version %d: %w", version, err)
	}
	return nil
}

// Force 强制设置版本（用于修复脏状态）
func (mm *Migrator) Force(version int) error {
	log.Warn().Int("version", version).Msg("forcing migration version")

	if err := mm.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Version 获取当前版本，未执行任何迁移时返回 0
func (mm *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mm.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// Revisions 沿迁移链列出全部版本
func (mm *Migrator) Revisions() ([]Revision, error) {
	src, err := iofs.New(migrationsFS, mm.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}
	defer src.Close()

	current, dirty, err := mm.Version()
	if err != nil {
		return nil, err
	}

	var revisions []Revision
	version, err := src.First()
	for err == nil {
		rev := Revision{
			Version: version,
			Applied: current != 0 && version <= current && !(dirty && version == current),
		}
		if len(revisions) > 0 {
			rev.Previous = revisions[len(revisions)-1].Version
			rev.HasPrevious = true
		}
		rev.Identifier, err = readIdentifier(src, version)
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, rev)

		version, err = src.Next(version)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to walk migrations: %w", err)
	}

	return revisions, nil
}

func readIdentifier(src source.Driver, version uint) (string, error) {
	r, identifier, err := src.ReadUp(version)
	if err != nil {
		return "", fmt.Errorf("failed to read migration %d: %w", version, err)
	}
	_ = r.Close()
	return identifier, nil
}

// Close 关闭迁移管理器（同时关闭其数据库连接）
func (mm *Migrator) Close() error {
	sourceErr, dbErr := mm.migrate.Close()
	if sourceErr != nil || dbErr != nil {
		return fmt.Errorf("errors occurred while closing migrator: source=%v, db=%v", sourceErr, dbErr)
	}
	return nil
}

// migrateLogger 将 golang-migrate 日志输出到 zerolog
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	log.Debug().Msgf(format, v...)
}

func (migrateLogger) Verbose() bool {
	return false
}
