package bootstrap

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shoutzor/backend/internal/config"
	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/db"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{Name: "Shoutzor", Env: "testing"},
		Paths: config.PathsConfig{
			EnvFile:     filepath.Join(dir, ".env"),
			ConfigCache: filepath.Join(dir, "cache", "config.json"),
			Storage:     filepath.Join(dir, "storage"),
		},
		Storage: config.StorageConfig{Driver: "local", Root: filepath.Join(dir, "media")},
		Queue:   config.QueueConfig{Workers: 1, Buffer: 4},
	}
}

func sqliteOpener(path string) db.Opener {
	return func(ctx context.Context, rt ports.RuntimeConfig) (*gorm.DB, error) {
		database, err := gorm.Open(sqlite.Open(path), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, err
		}
		return database, db.RunMigrations(database, nil)
	}
}

func TestNewWithConfigAppliesEnvFile(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.Paths.EnvFile, []byte("DB_CONNECTION=mysql\nSHOUTZOR_INSTALLED=true\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	k, err := NewWithConfig(cfg, config.NewRuntime(nil), logger.NewNop())
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	if k.Cached {
		t.Error("expected no config cache")
	}
	if !k.Workflow.Installed() {
		t.Error("expected the workflow to see the installed flag from the env file")
	}
	if got := k.Runtime.GetString("database.default"); got != "mysql" {
		t.Errorf("expected mysql, got %q", got)
	}
}

func TestNewWithConfigPrefersCache(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.Paths.EnvFile, []byte("SHOUTZOR_INSTALLED=true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := config.WriteCache(cfg.Paths.ConfigCache, map[string]any{
		"shoutzor": map[string]any{"installed": false},
	}); err != nil {
		t.Fatal(err)
	}

	k, err := NewWithConfig(cfg, config.NewRuntime(nil), logger.NewNop())
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	if !k.Cached || k.Workflow.Installed() {
		t.Errorf("expected the cache to win, cached=%v installed=%v", k.Cached, k.Workflow.Installed())
	}
}

func TestAppServicesLifecycle(t *testing.T) {
	cfg := testConfig(t)
	k, err := NewWithConfig(cfg, config.NewRuntime(nil), logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	k.Open = sqliteOpener(filepath.Join(t.TempDir(), "app.db"))

	ctx := context.Background()
	app, err := k.AppServices(ctx)
	if err != nil {
		t.Fatalf("AppServices: %v", err)
	}
	again, err := k.AppServices(ctx)
	if err != nil || again != app {
		t.Fatalf("expected the same services on the second call, got %p vs %p (%v)", again, app, err)
	}

	upload, task, err := app.Uploads.Upload(ctx, "track_one.mp3", bytes.NewReader([]byte("audio")), 0)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := app.Tasks.GetTask(task.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status == domain.TaskStatusCompleted {
			break
		}
		if got.Status == domain.TaskStatusFailed {
			t.Fatalf("processing failed: %s", got.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("upload %s was not processed in time, task status %s", upload.ID, got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	stored, err := app.Uploads.GetUpload(ctx, upload.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.UploadStatusComplete || stored.Media == nil || stored.Media.Title != "track one" {
		t.Errorf("unexpected processed upload %+v", stored)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := k.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := k.Shutdown(shutdownCtx); err != nil {
		t.Errorf("second Shutdown should be a no-op, got %v", err)
	}
}

func TestAppServicesRetriesAfterFailure(t *testing.T) {
	cfg := testConfig(t)
	k, err := NewWithConfig(cfg, config.NewRuntime(nil), logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	// An invalid port makes the default opener fail before dialing.
	k.Runtime.Configure(map[string]any{"database.default": "pgsql", "database.connections.pgsql.port": "not-a-port"})
	if _, err := k.AppServices(context.Background()); err == nil {
		t.Fatal("expected the first attempt to fail")
	}

	k.Open = sqliteOpener(filepath.Join(t.TempDir(), "retry.db"))
	if _, err := k.AppServices(context.Background()); err != nil {
		t.Fatalf("expected the retry to succeed, got %v", err)
	}
	k.Shutdown(context.Background())
}
