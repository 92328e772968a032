package main

import (
	"fmt"

	"github.com/marmos91/dittohttp/pkg/config"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path != "" {
				if err := config.InitConfigToPath(path, force); err != nil {
					return err
				}
			} else {
				written, err := config.InitConfig(force)
				if err != nil {
					return err
				}
				path = written
			}

			fmt.Printf("Configuration written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	cmd.Flags().StringVarP(&path, "config", "c", "", "Write to this path instead of the default location")
	return cmd
}
