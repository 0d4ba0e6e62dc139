package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/L1nMay/portscanner-console/internal/logger"
	"github.com/L1nMay/portscanner-console/internal/model"
	"github.com/L1nMay/portscanner-console/internal/notify"
	"github.com/L1nMay/portscanner-console/internal/render"
	"github.com/L1nMay/portscanner-console/internal/session"
)

func newScanCmd(a *App) *cobra.Command {
	var (
		targets       []string
		ports         string
		fromPlan      bool
		metricsListen string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Start a scan and follow its progress (Ctrl-C cancels)",
		Long: "Without flags the server's configured scan runs. --target/--ports start a custom scan, " +
			"--plan replays the scan plan suggested by the server.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var launch session.Launch
			switch {
			case fromPlan:
				req, err := a.plans.Replay(ctx)
				if err != nil {
					return a.fail("Plan failed", err)
				}
				launch = session.PlanLaunch(req)
			case len(targets) > 0 || cmd.Flags().Changed("ports"):
				launch = session.CustomLaunch(targets, ports)
			default:
				launch = session.DefaultLaunch()
			}

			if metricsListen == "" {
				metricsListen = a.cfg.Metrics.Listen
			}
			return a.runSession(ctx, cmd.OutOrStdout(), launch, metricsListen)
		},
	}

	cmd.Flags().StringSliceVar(&targets, "target", nil, "Targets for a custom scan (IP, CIDR or hostname; repeatable)")
	cmd.Flags().StringVar(&ports, "ports", "", "Ports for a custom scan: auto, top, or a list like 22,80,8000-8100")
	cmd.Flags().BoolVar(&fromPlan, "plan", false, "Replay the server's suggested scan plan")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Expose Prometheus metrics on this address while the scan runs")
	cmd.MarkFlagsMutuallyExclusive("plan", "target")
	return cmd
}

type sessionResult struct {
	outcome session.Outcome
	err     error
}

// runSession drives one scan session until it returns to Idle. Cancelling ctx
// cancels the scan.
func (a *App) runSession(ctx context.Context, out io.Writer, l session.Launch, metricsListen string) error {
	bar := render.NewProgress(30)
	done := make(chan sessionResult, 1)

	ctrl := session.New(
		session.Deps{Launcher: a.client, Stream: a.client, Refresher: a.results},
		session.Options{
			Clock:          a.clock,
			Watchdog:       a.cfg.WatchdogTimeout(),
			RefreshGrace:   a.cfg.RefreshGrace(),
			StalledDismiss: a.cfg.StalledDismiss(),
			Notifier:       a.notes,
			Metrics:        a.metrics,
			Hooks: session.Hooks{
				OnProgress: func(ev model.ProgressEvent) {
					fmt.Fprintln(out, bar.Line(ev, a.clock.Now()))
				},
				OnFinished: func(o session.Outcome, err error) {
					select {
					case done <- sessionResult{o, err}:
					default:
					}
				},
			},
		},
	)
	defer ctrl.Dispose()

	if metricsListen != "" {
		mctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			logger.Infof("metrics on http://%s/metrics", metricsListen)
			if err := a.metrics.Serve(mctx, metricsListen); err != nil {
				logger.Warnf("metrics listener: %v", err)
			}
		}()
	}

	if err := ctrl.Start(ctx, l); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			return &reportedError{err: err}
		}
		return err
	}

	var res sessionResult
	select {
	case res = <-done:
	case <-ctx.Done():
		logger.Infof("interrupted, cancelling session %s", ctrl.SessionID())
		if err := ctrl.Cancel(context.Background()); err != nil {
			return err
		}
		res = <-done
	}

	switch res.outcome {
	case session.OutcomeCompleted:
		if snap, ok := a.results.Snapshot(); ok {
			fmt.Fprintln(out, render.Stats(snap.Stats, snap.Runs))
		}
		if res.err != nil {
			return &reportedError{err: res.err}
		}
		return nil
	case session.OutcomeCancelled:
		return nil
	}
	return &reportedError{err: fmt.Errorf("scan %s: %w", res.outcome, res.err)}
}

func newCancelCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Ask the server to stop the running scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.CancelScan(cmd.Context()); err != nil {
				return a.fail("Cancel failed", err)
			}
			a.notify(notify.LevelInfo, "Cancel requested")
			return nil
		},
	}
}
