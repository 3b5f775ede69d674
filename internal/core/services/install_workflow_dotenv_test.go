package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shoutzor/backend/internal/config"
)

func TestInstallWorkflowWithDotenvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("APP_ENV=production\nACOUSTID_APIKEY='abc123'\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := config.NewDotenvStore(envPath)
	runtime := config.NewRuntime(nil)
	runner := &fakeRunner{errs: map[string]error{}}
	workflow := NewInstallWorkflow(InstallWorkflowConfig{
		Runtime:    runtime,
		Env:        store,
		Runner:     runner,
		Connection: &fakeTester{},
	})

	in := validSettings()
	in.Password = "my secret #1"

	result := workflow.ConfigureSQL(context.Background(), in)
	if !result.Success {
		t.Fatalf("ConfigureSQL failed: %v", result.Error)
	}

	env, err := store.Load()
	if err != nil {
		t.Fatalf("reload env: %v", err)
	}
	want := map[string]string{
		"DB_CONNECTION":   "mysql",
		"DB_HOST":         "db.internal",
		"DB_PORT":         "3306",
		"DB_DATABASE":     "shoutzor",
		"DB_USERNAME":     "shoutzor",
		"DB_PASSWORD":     "my secret #1",
		"APP_ENV":         "production",
		"ACOUSTID_APIKEY": "abc123",
	}
	for key, value := range want {
		if got, _ := env.Get(key); got != value {
			t.Errorf("%s = %q, want %q", key, got, value)
		}
	}

	for _, s := range workflow.Steps() {
		result, err := workflow.RunStep(context.Background(), s.Slug)
		if err != nil {
			t.Fatalf("%s: %v", s.Slug, err)
		}
		if !result.Success {
			t.Fatalf("%s failed: %v", s.Slug, result.Error)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the env file in %s, found %d entries", dir, len(entries))
	}

	booted := config.NewRuntime(nil)
	if _, err := config.Boot(booted, config.PathsConfig{
		EnvFile:     envPath,
		ConfigCache: filepath.Join(dir, "cache", "config.json"),
	}, store); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if !booted.GetBool("shoutzor.installed") {
		t.Error("installed flag should survive a restart")
	}
	if got := booted.GetString("database.connections.mysql.password"); got != "my secret #1" {
		t.Errorf("password after restart = %q", got)
	}
	if got := booted.GetString("database.default"); got != "mysql" {
		t.Errorf("default connection after restart = %q", got)
	}
}
