package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shoutzor/backend/internal/core/ports"
)

// Env keys that map onto the active database connection.
var envConnectionFields = map[string]string{
	"DB_HOST":     "host",
	"DB_PORT":     "port",
	"DB_DATABASE": "database",
	"DB_USERNAME": "username",
	"DB_PASSWORD": "password",
}

// Boot layers the deployment configuration onto the runtime. A config cache,
// when present, wins and the .env file is not consulted at all.
func Boot(rt *Runtime, paths PathsConfig, store ports.EnvStore) (cached bool, err error) {
	values, err := ReadCache(paths.ConfigCache)
	if err != nil {
		return false, err
	}
	if values != nil {
		if err := rt.Merge(values); err != nil {
			return false, fmt.Errorf("failed to merge config cache: %w", err)
		}
		return true, nil
	}

	editor, err := store.Load()
	if err != nil {
		return false, err
	}
	ApplyEnv(rt, editor)
	return false, nil
}

// ApplyEnv maps .env keys onto runtime config paths.
func ApplyEnv(rt *Runtime, env ports.EnvEditor) {
	values := make(map[string]any)

	backend := rt.GetString("database.default")
	if v, ok := env.Get("DB_CONNECTION"); ok && v != "" {
		backend = v
		values["database.default"] = v
	}
	for key, field := range envConnectionFields {
		if v, ok := env.Get(key); ok {
			values[fmt.Sprintf("database.connections.%s.%s", backend, field)] = v
		}
	}
	if v, ok := env.Get("SHOUTZOR_INSTALLED"); ok {
		values["shoutzor.installed"] = strings.EqualFold(v, "true")
	}
	if v, ok := env.Get("ACOUSTID_APIKEY"); ok {
		values["acoustid.api_key"] = v
	}
	if v, ok := env.Get("APP_ENV"); ok && v != "" {
		values["app.env"] = v
	}

	rt.Configure(values)
}

// ReadCache returns nil, nil when no cache file exists.
func ReadCache(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config cache: %w", err)
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to decode config cache: %w", err)
	}
	return values, nil
}

func WriteCache(path string, values map[string]any) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config cache: %w", err)
	}
	return os.Rename(tmp, path)
}

func ClearCache(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove config cache: %w", err)
	}
	return nil
}
