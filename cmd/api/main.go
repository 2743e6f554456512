package main

import (
	"os"

	"github.com/spf13/cobra"
)

// @title Medical Rotation Marketplace API
// @version 1.0.0
// @description Catalog, application workflow, engagement and content management for clinical rotation programs.
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "medrotation",
		Short:        "Medical rotation marketplace API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())

	return cmd
}
