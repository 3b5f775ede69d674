package domain

import (
	"context"
	"encoding/json"
	"errors"
)

type DatabaseBackend string

const (
	BackendMySQL     DatabaseBackend = "mysql"
	BackendPostgres  DatabaseBackend = "pgsql"
	BackendSQLServer DatabaseBackend = "sqlsrv"
)

type StepKind string

const (
	StepMigrateDatabase StepKind = "migrate_database"
	StepGenerateKeys    StepKind = "generate_keys"
	StepSeedDatabase    StepKind = "seed_database"
	StepFinishInstall   StepKind = "finish_install"
)

// StepStatus is encoded as an integer; -1 means the step has not run yet.
type StepStatus int

const (
	StepStatusPending   StepStatus = -1
	StepStatusFailed    StepStatus = 0
	StepStatusSucceeded StepStatus = 1
)

func (s StepStatus) String() string {
	switch s {
	case StepStatusPending:
		return "pending"
	case StepStatusFailed:
		return "failed"
	case StepStatusSucceeded:
		return "succeeded"
	}
	return "unknown"
}

type StepOperation func(ctx context.Context) InstallStepResult

type InstallStep struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Slug        string     `json:"slug"`
	Kind        StepKind   `json:"kind"`
	Running     bool       `json:"running"`
	Status      StepStatus `json:"status"`

	operation StepOperation
}

func NewInstallStep(kind StepKind, slug, name, description string, op StepOperation) *InstallStep {
	return &InstallStep{
		Name:        name,
		Description: description,
		Slug:        slug,
		Kind:        kind,
		Status:      StepStatusPending,
		operation:   op,
	}
}

func (s *InstallStep) Run(ctx context.Context) InstallStepResult {
	return s.operation(ctx)
}

type InputType string

const (
	InputText     InputType = "text"
	InputPassword InputType = "password"
)

type DatabaseFieldSpec struct {
	Name       string    `json:"name"`
	Rule       string    `json:"validate"`
	ConfigPath string    `json:"dotconfig"`
	EnvKey     string    `json:"dotenv"`
	Type       InputType `json:"type"`
	Default    string    `json:"default"`
}

type InstallStepResult struct {
	Success bool
	Output  string
	Error   error
}

func (r InstallStepResult) MarshalJSON() ([]byte, error) {
	type errorPayload struct {
		Message string       `json:"message"`
		Fields  []FieldError `json:"fields,omitempty"`
	}
	out := struct {
		Success bool          `json:"success"`
		Output  string        `json:"output"`
		Error   *errorPayload `json:"error"`
	}{Success: r.Success, Output: r.Output}

	if r.Error != nil {
		p := &errorPayload{Message: r.Error.Error()}
		var verr *FormValidationError
		if errors.As(r.Error, &verr) {
			p.Fields = verr.Fields
		}
		out.Error = p
	}
	return json.Marshal(out)
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type FormValidationError struct {
	Fields []FieldError
}

func (e *FormValidationError) Error() string {
	if len(e.Fields) == 1 {
		return e.Fields[0].Message
	}
	return "the given data was invalid"
}

// Field returns the message recorded for name, if any.
func (e *FormValidationError) Field(name string) (string, bool) {
	for _, f := range e.Fields {
		if f.Field == name {
			return f.Message, true
		}
	}
	return "", false
}
