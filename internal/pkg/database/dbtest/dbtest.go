// Package dbtest 提供测试用的 SQLite 数据库（执行真实迁移）
package dbtest

import (
	"path/filepath"
	"testing"

	"gptclone/internal/config"
	"gptclone/internal/pkg/database"
)

// URL 返回临时目录下的 sqlite 地址
func URL(t testing.TB) string {
	t.Helper()
	return "sqlite:///" + filepath.Join(t.TempDir(), "gptclone_test.db")
}

// Open 创建一个已迁移到最新版本的临时数据库
func Open(t testing.TB) *database.Client {
	t.Helper()

	url := URL(t)
	m, err := database.NewMigrator(url)
	if err != nil {
		t.Fatalf("failed to create migrator: %v", err)
	}
	if err := m.Up(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("failed to close migrator: %v", err)
	}

	client, err := database.New(&config.DatabaseConfig{URL: url, LogLevel: "silent"})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return client
}
