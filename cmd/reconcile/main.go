package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ledger-reconciliation-backend/internal/app"
	"ledger-reconciliation-backend/internal/config"
)

type reconcileInstance struct {
	app *app.App
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and connects to the store before any command.
func preRun(inst *reconcileInstance, envFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var files []string
		if *envFile != "" {
			files = append(files, *envFile)
		}
		cnf, err := config.Load(files...)
		if err != nil {
			return err
		}

		a, err := app.New(cnf)
		if err != nil {
			return fmt.Errorf("error starting reconcile: %w", err)
		}
		inst.app = a
		return nil
	}
}

func postRun(inst *reconcileInstance) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		if inst.app != nil {
			inst.app.Close()
		}
	}
}

func newCLI() *cobra.Command {
	var envFile string
	inst := &reconcileInstance{}

	rootCmd := &cobra.Command{
		Use:           "reconcile",
		Short:         "Bank and customer ledger reconciliation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env file to load before the environment")
	rootCmd.PersistentPreRunE = preRun(inst, &envFile)
	rootCmd.PersistentPostRun = postRun(inst)

	rootCmd.AddCommand(runCommand(inst))
	rootCmd.AddCommand(resetCommand(inst))
	rootCmd.AddCommand(migrateCommand(inst))
	return rootCmd
}

func main() {
	defer recoverPanic()

	if err := newCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
