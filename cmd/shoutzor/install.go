package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shoutzor/backend/cmd/shoutzor/ui"
	"github.com/shoutzor/backend/internal/bootstrap"
	"github.com/shoutzor/backend/internal/console"
	"github.com/shoutzor/backend/internal/core/services"
	"github.com/shoutzor/backend/internal/domain"
	"github.com/spf13/cobra"
)

type kernelFunc func() (*bootstrap.Kernel, error)

var errStepFailed = errors.New("installation step failed")

func installCmd(kernel kernelFunc) *cobra.Command {
	var (
		settings services.SQLSettings
		skipSQL  bool
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Configure the database and run every installation step",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := kernel()
			if err != nil {
				return err
			}
			defer k.Logger.Sync()

			out := cmd.OutOrStdout()
			w := k.Workflow
			if w.Installed() {
				fmt.Fprintln(out, ui.WarnMsg("Shoutzor is already installed"))
				return nil
			}

			if !skipSQL {
				if settings.Port == "" {
					settings.Port = defaultPort(w, settings.Backend)
				}
				fmt.Fprintln(out, ui.InfoMsg("Configuring %s database on %s", ui.Bold(settings.Backend), ui.Accent(settings.Host+":"+settings.Port)))
				result := w.ConfigureSQL(cmd.Context(), settings)
				if err := report(cmd, "Database configuration", result); err != nil {
					return err
				}
			}

			for _, step := range w.Steps() {
				if step.Status == domain.StepStatusSucceeded {
					fmt.Fprintln(out, ui.SuccessMsg("%s %s", step.Name, ui.Muted("(already done)")))
					continue
				}
				fmt.Fprintln(out, ui.InfoMsg("%s %s", ui.Bold(step.Name), ui.Muted(step.Description)))
				result, err := w.RunStep(cmd.Context(), step.Slug)
				if err != nil {
					return err
				}
				if err := report(cmd, step.Name, result); err != nil {
					return err
				}
			}

			fmt.Fprintln(out, ui.SuccessMsg("Shoutzor has been installed"))
			return nil
		},
	}

	cmd.Flags().StringVar(&settings.Backend, "dbtype", string(domain.BackendPostgres), "Database backend (mysql, pgsql, sqlsrv)")
	cmd.Flags().StringVar(&settings.Host, "host", "localhost", "Database host")
	cmd.Flags().StringVar(&settings.Port, "port", "", "Database port (defaults to the backend's port)")
	cmd.Flags().StringVar(&settings.Database, "database", "shoutzor", "Database name")
	cmd.Flags().StringVar(&settings.Username, "username", "shoutzor", "Database user")
	cmd.Flags().StringVar(&settings.Password, "password", "", "Database password")
	cmd.Flags().BoolVar(&skipSQL, "skip-sql", false, "Keep the database settings already in the env file")
	return cmd
}

func defaultPort(w *services.InstallWorkflow, backend string) string {
	if fields, ok := w.DBFields()[domain.DatabaseBackend(backend)]; ok {
		return fields["port"].Default
	}
	return ""
}

func report(cmd *cobra.Command, name string, result domain.InstallStepResult) error {
	out := cmd.OutOrStdout()
	if result.Output != "" {
		fmt.Fprint(out, ui.Indent("    ", result.Output))
	}
	if result.Success {
		fmt.Fprintln(out, ui.SuccessMsg("%s", name))
		return nil
	}

	var verr *domain.FormValidationError
	if errors.As(result.Error, &verr) {
		for _, f := range verr.Fields {
			fmt.Fprintln(out, ui.ErrorMsg("%s: %s", f.Field, f.Message))
		}
	} else if result.Error != nil {
		fmt.Fprintln(out, ui.ErrorMsg("%s: %v", name, result.Error))
	}
	return fmt.Errorf("%w: %s", errStepFailed, name)
}

func statusCmd(kernel kernelFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the installation state",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := kernel()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			installed := "no"
			if k.Workflow.Installed() {
				installed = ui.SuccessStyle.Render("yes")
			}
			fmt.Fprint(out, ui.KeyValues("",
				[2]string{"Installed", installed},
				[2]string{"Environment", k.Runtime.GetString("app.env")},
				[2]string{"Database", k.Runtime.GetString("database.default")},
				[2]string{"Config cache", strconv.FormatBool(k.Cached)},
				[2]string{"Env file", k.Env.Path()},
			))
			return nil
		},
	}
}

// consoleCmds mounts the administrative commands. Names and help come from
// an unwired runner; the kernel is only created when one of them runs.
func consoleCmds(kernel kernelFunc) []*cobra.Command {
	var cmds []*cobra.Command
	for _, tmpl := range console.NewRunner(console.Dependencies{}).Commands() {
		name := tmpl.Name()
		cmds = append(cmds, &cobra.Command{
			Use:                tmpl.Use,
			Short:              tmpl.Short,
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				k, err := kernel()
				if err != nil {
					return err
				}
				defer k.Logger.Sync()
				output, err := k.Runner.Call(cmd.Context(), name, args...)
				fmt.Fprint(cmd.OutOrStdout(), output)
				return err
			},
		})
	}
	return cmds
}
