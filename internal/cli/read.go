package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/L1nMay/portscanner-console/internal/render"
	"github.com/L1nMay/portscanner-console/internal/results"
)

func newStatsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show finding totals and the last scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.results.Refresh(cmd.Context()); err != nil {
				return a.fail("Load failed", err)
			}
			snap, _ := a.results.Snapshot()
			fmt.Fprintln(cmd.OutOrStdout(), render.Stats(snap.Stats, snap.Runs))
			return nil
		},
	}
}

func newResultsCmd(a *App) *cobra.Command {
	var (
		text    string
		service string
		sortBy  string
		page    int
	)

	cmd := &cobra.Command{
		Use:   "results",
		Short: "List findings with filtering, sorting and paging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := results.ParseSort(sortBy)
			if err != nil {
				return err
			}
			if err := a.results.Refresh(cmd.Context()); err != nil {
				return a.fail("Load failed", err)
			}

			view := a.results.View(results.Query{
				Text:    text,
				Service: service,
				Sort:    mode,
				Page:    page,
			}, a.cfg.PageSize)
			fmt.Fprintln(cmd.OutOrStdout(), render.Findings(view))
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "q", "", "Free-text filter over ip:port, service and banner")
	cmd.Flags().StringVar(&service, "service", "", "Only show this service (\"unknown\" for none)")
	cmd.Flags().StringVar(&sortBy, "sort", "lastSeenDesc", "lastSeenDesc, lastSeenAsc, ipAsc or portAsc")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	return cmd
}

func newRunsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "Show scan history, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := a.client.Scans(cmd.Context())
			if err != nil {
				return a.fail("Load failed", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Runs(runs))
			return nil
		},
	}
}

func newPlanCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the scan the server would run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.plans.Fetch(cmd.Context())
			if err != nil {
				return a.fail("Plan failed", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Plan(p))
			return nil
		},
	}
}
