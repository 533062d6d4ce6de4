package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zulandar/fleetboard/internal/db"
)

func newDBCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance commands",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "fleetboard.yaml", "path to Fleetboard config file")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the fleet schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(gormDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date.")
			return nil
		},
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Load the development fixture fleet",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(gormDB); err != nil {
				return err
			}
			if err := db.Seed(gormDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Fixture fleet seeded.")
			return nil
		},
	}

	cmd.AddCommand(migrate)
	cmd.AddCommand(seed)
	return cmd
}
