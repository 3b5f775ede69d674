package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
)

const (
	configKeyInstalled         = "shoutzor.installed"
	configKeyDefaultConnection = "database.default"
	envKeyInstalled            = "SHOUTZOR_INSTALLED"
	envKeyConnection           = "DB_CONNECTION"
)

// SQLSettings is the database connection form submitted by the installer.
type SQLSettings struct {
	Backend  string
	Host     string
	Port     string
	Database string
	Username string
	Password string
}

func (s SQLSettings) values() map[string]string {
	return map[string]string{
		"dbtype":   s.Backend,
		"host":     s.Host,
		"port":     s.Port,
		"database": s.Database,
		"username": s.Username,
		"password": s.Password,
	}
}

type InstallWorkflowConfig struct {
	Runtime    ports.RuntimeConfig
	Env        ports.EnvStore
	Runner     ports.CommandRunner
	Connection ports.ConnectionTester
	Validator  *FormValidator
	Logger     *logger.Logger
}

// InstallWorkflow sequences the installation into independently re-runnable
// steps. Only one step (or database configuration) runs at a time and nothing
// runs once the application is marked installed.
type InstallWorkflow struct {
	runtime   ports.RuntimeConfig
	env       ports.EnvStore
	runner    ports.CommandRunner
	conn      ports.ConnectionTester
	validator *FormValidator
	logger    *logger.Logger
	fields    map[domain.DatabaseBackend]map[string]domain.DatabaseFieldSpec

	mu    sync.Mutex
	steps []*domain.InstallStep
	busy  bool

	subMu   sync.Mutex
	subs    map[int]chan []domain.InstallStep
	nextSub int
}

func NewInstallWorkflow(cfg InstallWorkflowConfig) *InstallWorkflow {
	if cfg.Validator == nil {
		cfg.Validator = NewFormValidator()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	w := &InstallWorkflow{
		runtime:   cfg.Runtime,
		env:       cfg.Env,
		runner:    cfg.Runner,
		conn:      cfg.Connection,
		validator: cfg.Validator,
		logger:    cfg.Logger,
		fields:    newDBFields(),
		subs:      make(map[int]chan []domain.InstallStep),
	}
	w.steps = []*domain.InstallStep{
		domain.NewInstallStep(domain.StepMigrateDatabase, "migrate-database",
			"Database migrations", "Creates tables and indexes in the database", w.migrateDatabase),
		domain.NewInstallStep(domain.StepGenerateKeys, "generate-keys",
			"Generate Encryption Keys", "creates the encryption keys needed to generate secure access tokens", w.installPassport),
		domain.NewInstallStep(domain.StepSeedDatabase, "seed-database",
			"Database seeding", "Adds initial data to the database", w.seedDatabase),
		domain.NewInstallStep(domain.StepFinishInstall, "finish-install",
			"Finishing up", "Finalize the installation", w.finishInstall),
	}
	return w
}

// Steps returns a snapshot of every step in execution order.
func (w *InstallWorkflow) Steps() []domain.InstallStep {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.InstallStep, len(w.steps))
	for i, s := range w.steps {
		out[i] = *s
	}
	return out
}

// DBFields returns the field table for every supported backend.
func (w *InstallWorkflow) DBFields() map[domain.DatabaseBackend]map[string]domain.DatabaseFieldSpec {
	out := make(map[domain.DatabaseBackend]map[string]domain.DatabaseFieldSpec, len(w.fields))
	for backend, specs := range w.fields {
		inner := make(map[string]domain.DatabaseFieldSpec, len(specs))
		for name, spec := range specs {
			inner[name] = spec
		}
		out[backend] = inner
	}
	return out
}

func (w *InstallWorkflow) Installed() bool {
	return w.runtime.GetBool(configKeyInstalled)
}

func (w *InstallWorkflow) acquire() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Installed() {
		return ErrAlreadyInstalled
	}
	if w.busy {
		return ErrInstallBusy
	}
	w.busy = true
	return nil
}

func (w *InstallWorkflow) release() {
	w.mu.Lock()
	w.busy = false
	w.mu.Unlock()
}

// RunStep executes the step identified by slug and records its outcome.
func (w *InstallWorkflow) RunStep(ctx context.Context, slug string) (domain.InstallStepResult, error) {
	step := w.find(slug)
	if step == nil {
		return domain.InstallStepResult{}, fmt.Errorf("%w: %s", ErrStepNotFound, slug)
	}
	if err := w.acquire(); err != nil {
		return domain.InstallStepResult{}, err
	}
	defer w.release()

	w.mu.Lock()
	step.Running = true
	w.mu.Unlock()
	w.publish()
	w.logger.Infow("install_step_started", "slug", slug)

	result := step.Run(ctx)

	w.mu.Lock()
	step.Running = false
	if result.Success {
		step.Status = domain.StepStatusSucceeded
	} else {
		step.Status = domain.StepStatusFailed
	}
	status := step.Status
	w.mu.Unlock()
	w.publish()

	if result.Success {
		w.logger.Infow("install_step_finished", "slug", slug, "status", status.String())
	} else {
		w.logger.Warnw("install_step_finished", "slug", slug, "status", status.String(), "error", result.Error)
	}
	return result, nil
}

func (w *InstallWorkflow) find(slug string) *domain.InstallStep {
	for _, s := range w.steps {
		if s.Slug == slug {
			return s
		}
	}
	return nil
}

// ConfigureSQL validates the submitted connection settings, proves them with a
// live connection and only then writes them to the env file.
func (w *InstallWorkflow) ConfigureSQL(ctx context.Context, in SQLSettings) domain.InstallStepResult {
	if err := w.acquire(); err != nil {
		return domain.InstallStepResult{Error: err}
	}
	defer w.release()

	params := in.values()
	backend := domain.DatabaseBackend(in.Backend)

	backendRule := "required,oneof=" + strings.Join(supportedBackends(w.fields), " ")
	if _, failed := w.validator.Check("dbtype", in.Backend, backendRule); failed {
		w.logger.Warnw("install_sql_invalid_backend", "backend", in.Backend)
		return domain.InstallStepResult{Error: &domain.FormValidationError{
			Fields: []domain.FieldError{{Field: "dbtype", Message: "Invalid database type provided"}},
		}}
	}
	specs := w.fields[backend]

	rules := make(map[string]string, len(specs))
	for name, spec := range specs {
		rules[name] = spec.Rule
	}
	if errs := w.validator.ValidateFields(dbFieldOrder, params, rules); len(errs) > 0 {
		w.logger.Warnw("install_sql_validation_failed", "backend", backend, "fields", len(errs))
		return domain.InstallStepResult{Error: &domain.FormValidationError{Fields: errs}}
	}

	configValues := map[string]any{configKeyDefaultConnection: string(backend)}
	envValues := make(map[string]string, len(specs))
	for name, spec := range specs {
		configValues[spec.ConfigPath] = params[name]
		envValues[spec.EnvKey] = params[name]
	}

	previous := make(map[string]any, len(configValues))
	for key := range configValues {
		previous[key] = w.runtime.Get(key)
	}
	w.runtime.Configure(configValues)

	if err := w.conn.Test(ctx, w.runtime); err != nil {
		w.runtime.Configure(previous)
		w.logger.Warnw("install_sql_connection_failed", "backend", backend, "host", in.Host, "error", err)
		return domain.InstallStepResult{Error: err}
	}

	editor, err := w.env.Load()
	if err != nil {
		w.runtime.Configure(previous)
		return domain.InstallStepResult{Error: fmt.Errorf("%w: %v", ErrEnvPersistFailed, err)}
	}
	if err := editor.SetKey(envKeyConnection, string(backend)).SetKeys(envValues).Save(); err != nil {
		w.runtime.Configure(previous)
		w.logger.Errorw("install_sql_env_save_failed", "error", err)
		return domain.InstallStepResult{Error: fmt.Errorf("%w: %v", ErrEnvPersistFailed, err)}
	}
	w.logger.Infow("install_sql_configured", "backend", backend, "host", in.Host, "database", in.Database)

	return w.call(ctx, "config:cache")
}

func (w *InstallWorkflow) migrateDatabase(ctx context.Context) domain.InstallStepResult {
	return w.call(ctx, "migrate", "--force")
}

func (w *InstallWorkflow) installPassport(ctx context.Context) domain.InstallStepResult {
	return w.call(ctx, "passport:install", "--force")
}

func (w *InstallWorkflow) seedDatabase(ctx context.Context) domain.InstallStepResult {
	return w.call(ctx, "db:seed")
}

// finishInstall marks the application installed in the env file and the live
// configuration, then rebuilds the config cache. A failure rolls both flags back.
func (w *InstallWorkflow) finishInstall(ctx context.Context) domain.InstallStepResult {
	previous := w.runtime.Get(configKeyInstalled)

	editor, err := w.env.Load()
	if err != nil {
		return domain.InstallStepResult{Error: fmt.Errorf("%w: %v", ErrEnvPersistFailed, err)}
	}
	prevEnv, hadEnv := editor.Get(envKeyInstalled)
	if err := editor.SetKey(envKeyInstalled, "true").Save(); err != nil {
		return domain.InstallStepResult{Error: fmt.Errorf("%w: %v", ErrEnvPersistFailed, err)}
	}
	w.runtime.Configure(map[string]any{configKeyInstalled: true})

	result := w.call(ctx, "config:cache")
	if !result.Success {
		w.runtime.Configure(map[string]any{configKeyInstalled: previous})
		if !hadEnv {
			prevEnv = "false"
		}
		if editor, err := w.env.Load(); err == nil {
			if err := editor.SetKey(envKeyInstalled, prevEnv).Save(); err != nil {
				w.logger.Errorw("install_finish_rollback_failed", "error", err)
			}
		}
	}
	return result
}

func (w *InstallWorkflow) call(ctx context.Context, command string, args ...string) domain.InstallStepResult {
	output, err := w.runner.Call(ctx, command, args...)
	if err != nil {
		w.logger.Errorw("install_command_failed", "command", command, "args", args, "error", err)
		return domain.InstallStepResult{Success: false, Output: output, Error: err}
	}
	return domain.InstallStepResult{Success: true, Output: output}
}

// Subscribe delivers a step snapshot after every state transition. Slow
// subscribers miss snapshots instead of blocking the workflow.
func (w *InstallWorkflow) Subscribe() (<-chan []domain.InstallStep, func()) {
	ch := make(chan []domain.InstallStep, 8)
	w.subMu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	w.subMu.Unlock()

	return ch, func() {
		w.subMu.Lock()
		if c, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(c)
		}
		w.subMu.Unlock()
	}
}

func (w *InstallWorkflow) publish() {
	snapshot := w.Steps()
	w.subMu.Lock()
	defer w.subMu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}
