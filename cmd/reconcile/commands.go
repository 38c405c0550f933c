package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"ledger-reconciliation-backend/internal/apperror"
	"ledger-reconciliation-backend/internal/config"
)

func performer() string {
	if user := os.Getenv("USER"); user != "" {
		return "cli:" + user
	}
	return "cli"
}

func runCommand(inst *reconcileInstance) *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "reset and reconcile one scope, printing the report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := inst.app.Service.RunReconciliation(cmd.Context(), scope, performer())

			var partial *apperror.PartialApplyError
			if err != nil && !errors.As(err, &partial) {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(report); encErr != nil {
				return encErr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "agency/bank scope to reconcile")
	_ = cmd.MarkFlagRequired("scope")
	return cmd
}

func resetCommand(inst *reconcileInstance) *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "discard match links and comparison rows of one scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := inst.app.Service.ResetScope(cmd.Context(), scope, performer())
			if err != nil {
				return err
			}
			cmd.Printf("scope %s reset: %d comparisons deleted, %d links cleared\n",
				scope, result.ComparisonsDeleted, result.LinksCleared)
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "agency/bank scope to reset")
	_ = cmd.MarkFlagRequired("scope")
	return cmd
}

func migrateCommand(inst *reconcileInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Migrate(inst.app.DB); err != nil {
				return err
			}
			cmd.Println("migration complete")
			return nil
		},
	}
}
