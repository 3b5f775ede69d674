package ports

import (
	"context"
)

// CommandRunner executes named administrative commands and returns whatever
// they printed.
type CommandRunner interface {
	Call(ctx context.Context, command string, args ...string) (string, error)
}

// EnvStore is the durable key/value file that survives restarts.
type EnvStore interface {
	Load() (EnvEditor, error)
}

// EnvEditor buffers changes to a loaded EnvStore; nothing reaches disk until Save.
type EnvEditor interface {
	Get(key string) (string, bool)
	SetKey(key, value string) EnvEditor
	SetKeys(values map[string]string) EnvEditor
	Save() error
}

// RuntimeConfig is the live in-process configuration.
type RuntimeConfig interface {
	Configure(values map[string]any)
	Get(key string) any
	GetString(key string) string
	GetBool(key string) bool
	GetInt(key string) int
	AllSettings() map[string]any
}

// ConnectionTester opens a throwaway connection using the database settings
// currently held by the runtime configuration.
type ConnectionTester interface {
	Test(ctx context.Context, cfg RuntimeConfig) error
}
