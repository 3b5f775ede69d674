package console

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/shoutzor/backend/internal/config"
	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/shoutzor/backend/internal/core/services"
	"github.com/shoutzor/backend/internal/infrastructure/db"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type Dependencies struct {
	Runtime ports.RuntimeConfig
	Paths   config.PathsConfig
	Open    db.Opener
	KeyBits int
	Logger  *logger.Logger
}

// Runner executes administrative commands in-process and captures their
// output. A fresh command tree is built per call so flags never carry over.
type Runner struct {
	deps Dependencies
}

var _ ports.CommandRunner = (*Runner)(nil)

func NewRunner(deps Dependencies) *Runner {
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	return &Runner{deps: deps}
}

func (r *Runner) Call(ctx context.Context, command string, args ...string) (string, error) {
	root := r.root()
	if cmd, _, err := root.Find([]string{command}); err != nil || cmd == root {
		return "", fmt.Errorf("%w: %s", services.ErrUnknownCommand, command)
	}

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{command}, args...))

	r.deps.Logger.Infow("console_command_started", "command", command, "args", strings.Join(args, " "))
	if err := root.ExecuteContext(ctx); err != nil {
		r.deps.Logger.Errorw("console_command_failed", "command", command, "error", err)
		return out.String(), err
	}
	r.deps.Logger.Infow("console_command_ok", "command", command)
	return out.String(), nil
}

func (r *Runner) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "shoutzor",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(r.Commands()...)
	return root
}

// Commands returns the administrative command set, for mounting under a CLI.
func (r *Runner) Commands() []*cobra.Command {
	return []*cobra.Command{
		r.migrateCmd(),
		r.passportInstallCmd(),
		r.seedCmd(),
		r.configCacheCmd(),
		r.configClearCmd(),
	}
}

func (r *Runner) withDB(ctx context.Context, fn func(*gorm.DB) error) error {
	database, err := r.deps.Open(ctx, r.deps.Runtime)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close(database)
	return fn(database)
}
