package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/subosito/gotenv"
)

// DotenvStore is the durable .env file. Every Load starts from what is on
// disk; changes only become visible to the next Load after Save.
type DotenvStore struct {
	path string
}

func NewDotenvStore(path string) *DotenvStore {
	return &DotenvStore{path: path}
}

func (s *DotenvStore) Path() string {
	return s.path
}

func (s *DotenvStore) Load() (ports.EnvEditor, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &dotenvEditor{path: s.path, values: gotenv.Env{}}, nil
		}
		return nil, fmt.Errorf("failed to open env file: %w", err)
	}
	defer f.Close()

	values, err := gotenv.StrictParse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file: %w", err)
	}
	return &dotenvEditor{path: s.path, values: values}, nil
}

type dotenvEditor struct {
	path   string
	values gotenv.Env
}

func (e *dotenvEditor) Get(key string) (string, bool) {
	v, ok := e.values[key]
	return v, ok
}

func (e *dotenvEditor) SetKey(key, value string) ports.EnvEditor {
	e.values[key] = value
	return e
}

func (e *dotenvEditor) SetKeys(values map[string]string) ports.EnvEditor {
	for k, val := range values {
		e.values[k] = val
	}
	return e
}

// Save writes a sibling temp file and renames it over the env file so a
// failed write never leaves a truncated .env behind.
func (e *dotenvEditor) Save() error {
	dir := filepath.Dir(e.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create env directory: %w", err)
	}

	content, err := encodeEnv(e.values)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(e.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write env file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod env file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}
	if err := os.Rename(tmp.Name(), e.path); err != nil {
		return fmt.Errorf("failed to replace env file: %w", err)
	}
	return nil
}

// encodeEnv renders one KEY=value line per key in sorted order. The output is
// parsed back before it is returned, so a value gotenv would misread is
// reported instead of written.
func encodeEnv(values gotenv.Env) (string, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(quoteEnvValue(values[k]))
		sb.WriteByte('\n')
	}
	content := sb.String()

	parsed, err := gotenv.StrictParse(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to encode env file: %w", err)
	}
	for _, k := range keys {
		if got, ok := parsed[k]; !ok || got != values[k] {
			return "", fmt.Errorf("value of %s cannot be stored in an env file", k)
		}
	}
	return content, nil
}

var envEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`$`, `\$`,
	"\n", `\n`,
	"\r", `\r`,
)

// quoteEnvValue prefers single quotes, which gotenv takes literally. Values
// that cannot be single quoted are double quoted with escapes. gotenv treats
// a backslash before the closing quote as an escape, so a trailing backslash
// is only representable unquoted.
func quoteEnvValue(v string) string {
	if strings.HasSuffix(v, `\`) && plainEnvValue(v) {
		return v
	}
	if !strings.ContainsAny(v, "'\n\r") {
		return "'" + v + "'"
	}
	return `"` + envEscaper.Replace(v) + `"`
}

func plainEnvValue(v string) bool {
	return v != "" &&
		strings.TrimSpace(v) == v &&
		!strings.ContainsAny(v, "#$\n\r") &&
		v[0] != '\'' && v[0] != '"'
}
