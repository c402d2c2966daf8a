/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/gator-market/apiserver/config"
	"github.com/gator-market/apiserver/internal/db"
	"github.com/gator-market/apiserver/internal/seed"
	"github.com/gator-market/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// seedCmd represents the seed command.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with bootstrap accounts and listings",
	Long: `Populate the database with bootstrap accounts and listings.

Idempotent: users are keyed on unique email and items on their unique
seed title, so running it twice creates nothing new.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		seeder := seed.New(store.NewUserRepository(dbConn), store.NewListingRepository(dbConn))
		summary, err := seeder.Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("users: %d created, %d existing\n", summary.UsersCreated, summary.UsersExisting)
		fmt.Printf("items: %d created, %d existing\n", summary.ItemsCreated, summary.ItemsExisting)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
