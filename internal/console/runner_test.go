package console

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shoutzor/backend/internal/config"
	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/shoutzor/backend/internal/core/services"
	"github.com/shoutzor/backend/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixture struct {
	runner  *Runner
	runtime *config.Runtime
	paths   config.PathsConfig
	dbPath  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	rt := config.NewRuntime(nil)
	rt.Configure(map[string]any{"app.env": "local", "app.name": "Shoutzor"})

	f := &fixture{
		runtime: rt,
		paths: config.PathsConfig{
			EnvFile:     filepath.Join(dir, ".env"),
			ConfigCache: filepath.Join(dir, "cache", "config.json"),
			Storage:     filepath.Join(dir, "storage"),
		},
		dbPath: filepath.Join(dir, "shoutzor.db"),
	}
	f.runner = NewRunner(Dependencies{
		Runtime: rt,
		Paths:   f.paths,
		Open: func(ctx context.Context, _ ports.RuntimeConfig) (*gorm.DB, error) {
			return f.open()
		},
		KeyBits: 1024,
	})
	return f
}

func (f *fixture) open() (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(f.dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

func (f *fixture) mustCall(t *testing.T, command string, args ...string) string {
	t.Helper()
	out, err := f.runner.Call(context.Background(), command, args...)
	if err != nil {
		t.Fatalf("%s failed: %v\n%s", command, err, out)
	}
	return out
}

func TestCallUnknownCommand(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Call(context.Background(), "route:list")
	if !errors.Is(err, services.ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestMigrate(t *testing.T) {
	t.Run("creates every table", func(t *testing.T) {
		f := newFixture(t)
		out := f.mustCall(t, "migrate")
		for _, table := range []string{"roles", "users", "oauth_clients", "media", "uploads", "requests"} {
			if !strings.Contains(out, "Migrated:  "+table) {
				t.Errorf("expected %s in output:\n%s", table, out)
			}
		}
	})

	t.Run("production requires force", func(t *testing.T) {
		f := newFixture(t)
		f.runtime.Configure(map[string]any{"app.env": "production"})

		if _, err := f.runner.Call(context.Background(), "migrate"); !errors.Is(err, services.ErrProductionNoForce) {
			t.Fatalf("expected ErrProductionNoForce, got %v", err)
		}
		f.mustCall(t, "migrate", "--force")

		// flags must not survive into the next call
		if _, err := f.runner.Call(context.Background(), "migrate"); !errors.Is(err, services.ErrProductionNoForce) {
			t.Fatalf("expected force flag to reset, got %v", err)
		}
	})
}

func TestPassportInstall(t *testing.T) {
	f := newFixture(t)
	f.mustCall(t, "migrate")

	out := f.mustCall(t, "passport:install")
	if !strings.Contains(out, "Encryption keys generated successfully.") {
		t.Errorf("unexpected output:\n%s", out)
	}
	for _, name := range []string{services.PrivateKeyFile, services.PublicKeyFile} {
		if _, err := os.Stat(filepath.Join(f.paths.Storage, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}

	if _, err := f.runner.Call(context.Background(), "passport:install"); !errors.Is(err, services.ErrKeysExist) {
		t.Fatalf("expected ErrKeysExist without --force, got %v", err)
	}
	f.mustCall(t, "passport:install", "--force")

	database, err := f.open()
	if err != nil {
		t.Fatal(err)
	}
	var clients []domain.OAuthClient
	database.Find(&clients)
	if len(clients) != 4 {
		t.Fatalf("expected 4 clients after two installs, got %d", len(clients))
	}
	if !clients[0].PersonalAccessClient || !clients[1].PasswordClient {
		t.Errorf("unexpected client kinds: %+v", clients[:2])
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.mustCall(t, "migrate")

	first := f.mustCall(t, "db:seed")
	if !strings.Contains(first, "Admin password: ") {
		t.Fatalf("expected the generated password to be printed:\n%s", first)
	}

	second := f.mustCall(t, "db:seed")
	if strings.Contains(second, "Admin password: ") {
		t.Fatalf("password must only be printed once:\n%s", second)
	}
	if !strings.Contains(second, "Skipped user: admin") {
		t.Errorf("unexpected output:\n%s", second)
	}

	database, err := f.open()
	if err != nil {
		t.Fatal(err)
	}
	var users, roles int64
	database.Model(&domain.User{}).Count(&users)
	database.Model(&domain.Role{}).Count(&roles)
	if users != 1 || roles != 2 {
		t.Fatalf("expected 1 user and 2 roles, got %d and %d", users, roles)
	}

	var admin domain.User
	database.Preload("Roles").Where("username = ?", "admin").First(&admin)
	if len(admin.Roles) != 2 {
		t.Errorf("expected admin to hold both roles, got %d", len(admin.Roles))
	}
}

func TestConfigCache(t *testing.T) {
	f := newFixture(t)
	f.runtime.Configure(map[string]any{"database.default": "mysql"})

	f.mustCall(t, "config:cache")
	values, err := config.ReadCache(f.paths.ConfigCache)
	if err != nil || values == nil {
		t.Fatalf("expected a cache file, got %v, %v", values, err)
	}
	database, _ := values["database"].(map[string]any)
	if database["default"] != "mysql" {
		t.Errorf("expected cached database.default mysql, got %v", database["default"])
	}

	f.mustCall(t, "config:clear")
	if _, err := os.Stat(f.paths.ConfigCache); !os.IsNotExist(err) {
		t.Fatalf("expected cache to be removed, got %v", err)
	}
	// clearing twice is fine
	f.mustCall(t, "config:clear")
}
