package console

import (
	"fmt"

	"github.com/shoutzor/backend/internal/config"
	"github.com/shoutzor/backend/internal/core/services"
	"github.com/shoutzor/backend/internal/infrastructure/db"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func (r *Runner) migrateCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run the database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if r.deps.Runtime.GetString("app.env") == "production" && !force {
				return services.ErrProductionNoForce
			}
			return r.withDB(cmd.Context(), func(database *gorm.DB) error {
				return db.RunMigrations(database, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Force the operation to run when in production")
	return cmd
}

func (r *Runner) passportInstallCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "passport:install",
		Short: "Create the encryption keys and clients needed to issue access tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withDB(cmd.Context(), func(database *gorm.DB) error {
				passport := services.NewPassportService(
					db.NewOAuthClientRepository(database, r.deps.Logger),
					services.PassportConfig{
						KeyDir:  r.deps.Paths.Storage,
						KeyBits: r.deps.KeyBits,
						AppName: r.deps.Runtime.GetString("app.name"),
					},
					r.deps.Logger,
				)
				return passport.Install(cmd.Context(), force, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite keys if they already exist")
	return cmd
}

func (r *Runner) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "db:seed",
		Short: "Seed the database with the default roles and admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withDB(cmd.Context(), func(database *gorm.DB) error {
				seeder := services.NewSeedService(
					db.NewUserRepository(database, r.deps.Logger),
					db.NewRoleRepository(database, r.deps.Logger),
					r.deps.Logger,
				)
				return seeder.Seed(cmd.Context(), cmd.OutOrStdout())
			})
		},
	}
}

func (r *Runner) configCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config:cache",
		Short: "Create a cache file for faster configuration loading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ClearCache(r.deps.Paths.ConfigCache); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration cache cleared!")

			if err := config.WriteCache(r.deps.Paths.ConfigCache, r.deps.Runtime.AllSettings()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration cached successfully!")
			return nil
		},
	}
}

func (r *Runner) configClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config:clear",
		Short: "Remove the configuration cache file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ClearCache(r.deps.Paths.ConfigCache); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration cache cleared!")
			return nil
		},
	}
}
