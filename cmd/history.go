// File: cmd/history.go
package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/panelkeeper/internal/config"
	"github.com/xkilldash9x/panelkeeper/internal/observability"
	"github.com/xkilldash9x/panelkeeper/internal/report"
	"github.com/xkilldash9x/panelkeeper/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent recorded login attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			if cfg.Store.Driver == config.StoreDriverNone || cfg.Store.Driver == "" {
				return fmt.Errorf("run history is disabled (store.driver=%q)", cfg.Store.Driver)
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			recorder, err := store.Open(ctx, cfg.Store, observability.GetLogger())
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer recorder.Close()

			records, err := recorder.Recent(ctx, limit)
			if err != nil {
				return err
			}
			loc, err := report.LoadLocation(cfg.Run.ReportTimezone)
			if err != nil {
				return err
			}
			return writeHistory(cmd.OutOrStdout(), records, loc)
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of attempts to show")
	historyCmd.Flags().String("timezone", "Asia/Shanghai", "time zone used for timestamps")
	return historyCmd
}

// writeHistory renders records as an aligned table, newest first.
func writeHistory(w io.Writer, records []store.Record, loc *time.Location) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No login attempts recorded yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSERVICE\tUSERNAME\tHOST\tRESULT\tREASON")
	for _, r := range records {
		result, reason := "ok", "-"
		if !r.Authenticated {
			result = "failed"
			if r.Reason != "" {
				reason = r.Reason
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.At.In(loc).Format(report.TimeLayout), r.Service, r.Username, r.Host, result, reason)
	}
	return tw.Flush()
}
