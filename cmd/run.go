// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/panelkeeper/internal/accounts"
	"github.com/xkilldash9x/panelkeeper/internal/observability"
)

// newRunCmd creates the `run` command, which performs one keep-alive pass.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Log in to every configured account once and report the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}

			accts, err := accounts.NewLoader(logger, cfg.Run.AccountsFile).Load(ctx)
			if err != nil {
				return fmt.Errorf("failed to load accounts: %w", err)
			}

			components, err := initializeRunComponents(ctx, cfg, logger)
			if err != nil {
				if components != nil {
					components.Shutdown(ctx)
				}
				return fmt.Errorf("failed to initialize run components: %w", err)
			}
			defer components.Shutdown(ctx)

			rep, err := components.Orchestrator.Run(ctx, accts)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Run aborted by signal.", zap.Int("processed", len(rep.Entries)), zap.Int("total", len(accts)))
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d accounts: %d logged in, %d failed.\n",
				len(rep.Entries), rep.Succeeded(), rep.Failed())
			return nil
		},
	}

	runCmd.Flags().StringP("accounts", "a", "accounts.json", "accounts file (JSON or YAML)")
	runCmd.Flags().String("screenshot-dir", ".", "directory for failure screenshots")
	runCmd.Flags().String("summary", "", "write a Markdown run summary to this file")
	runCmd.Flags().Duration("min-delay", time.Second, "minimum pause between accounts")
	runCmd.Flags().Duration("max-delay", 8*time.Second, "maximum pause between accounts")
	runCmd.Flags().String("timezone", "Asia/Shanghai", "time zone used for report timestamps")
	runCmd.Flags().Bool("headless", true, "run the browser without a window")
	runCmd.Flags().String("chrome", "", "path to the Chrome or Chromium executable")
	return runCmd
}
