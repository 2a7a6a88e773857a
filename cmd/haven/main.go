package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/haventeam/haven/appservice"
	"github.com/haventeam/haven/notifierworker"
)

var rootCmd = &cobra.Command{
	Use:   "haven",
	Short: "Haven productivity backend",
}

func main() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return appservice.Run()
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "notifier",
		Short: "Run the notification outbox worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return notifierworker.Run()
		},
	})
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
