package main

import (
	"fmt"
	"os"

	"github.com/shoutzor/backend/internal/bootstrap"
	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	kernel := func() (*bootstrap.Kernel, error) {
		return bootstrap.New(bootstrap.ResolveConfigPath(configPath))
	}

	root := &cobra.Command{
		Use:           "shoutzor",
		Short:         "Shoutzor administration and installer",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "Path to the config file")

	root.AddCommand(installCmd(kernel))
	root.AddCommand(statusCmd(kernel))
	root.AddCommand(consoleCmds(kernel)...)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
