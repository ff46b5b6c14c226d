package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/costdesk/costdesk/cmd/costdesk/cli"
	"github.com/costdesk/costdesk/internal/app"
	"github.com/costdesk/costdesk/internal/observability"
)

// exitError carries a command exit code through cobra.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	var exit exitError
	switch {
	case errors.As(err, &exit):
		stop()
		os.Exit(exit.code)
	case err != nil:
		fmt.Fprintln(os.Stderr, "costdesk:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "costdesk",
		Short:         "Project cost control: estimations, cost change notes and the CRS report",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newReportCmd(), newJobsCmd())
	return root
}

// setup loads configuration and builds the container. Logs go to stderr so
// report output on stdout stays clean.
func setup(ctx context.Context) (*app.Container, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLoggerTo(cfg, os.Stderr)
	container, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return container, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := app.NewLogger(cfg)
			container, err := app.Build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := container.Close(); err != nil {
					logger.Warn("close resources", slog.Any("error", err))
				}
			}()

			metrics := observability.NewMetrics()
			if err := container.TrackStores(metrics); err != nil {
				logger.Warn("register store metrics", slog.Any("error", err))
			}

			server := &http.Server{
				Addr:         cfg.AppAddr,
				Handler:      container.Router(metrics),
				ReadTimeout:  cfg.AppReadTimeout,
				WriteTimeout: cfg.AppWriteTimeout,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
			case <-ctx.Done():
			}
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown", slog.Any("error", err))
			}
			return nil
		},
	}
}

func newReportCmd() *cobra.Command {
	report := &cobra.Command{
		Use:   "report",
		Short: "Print reports from the configured storage",
	}

	var crsOpts cli.CRSOptions
	crsCmd := &cobra.Command{
		Use:   "crs",
		Short: "Print the CRS report as csv, xlsx or json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()
			crsOpts.Stdout, crsOpts.Stderr = cmd.OutOrStdout(), cmd.ErrOrStderr()
			return asExit(cli.NewReportCLI(container.CRS, container.Dashboard).CRSCommand(cmd.Context(), crsOpts))
		},
	}
	crsCmd.Flags().StringVar(&crsOpts.Format, "format", "csv", "output format: csv, xlsx or json")
	crsCmd.Flags().BoolVar(&crsOpts.FailOnOverrun, "fail-on-overrun", false, "exit 10 when the anticipated total exceeds the estimate")

	var ccnOpts cli.CCNOptions
	ccnCmd := &cobra.Command{
		Use:   "ccn",
		Short: "Print the CCN summary and budget impact of a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()
			ccnOpts.Stdout, ccnOpts.Stderr = cmd.OutOrStdout(), cmd.ErrOrStderr()
			return asExit(cli.NewReportCLI(container.CRS, container.Dashboard).CCNCommand(cmd.Context(), ccnOpts))
		},
	}
	ccnCmd.Flags().StringVar(&ccnOpts.ProjectID, "project", "", "project id")
	ccnCmd.Flags().BoolVar(&ccnOpts.JSONOutput, "json", false, "print JSON")

	report.AddCommand(crsCmd, ccnCmd)
	return report
}

func newJobsCmd() *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}

	var triggerOpts cli.TriggerOptions
	trigger := &cobra.Command{
		Use:   "trigger <task>",
		Short: "Enqueue a job (crs:snapshot)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()
			triggerOpts.Name = args[0]
			triggerOpts.Stdout, triggerOpts.Stderr = cmd.OutOrStdout(), cmd.ErrOrStderr()
			return asExit(jobsCLI(container).TriggerCommand(cmd.Context(), triggerOpts))
		},
	}
	trigger.Flags().StringVar(&triggerOpts.Date, "date", "", "snapshot date YYYY-MM-DD, defaults to today (UTC)")

	var statsOpts cli.StatsOptions
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print default queue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()
			statsOpts.Stdout, statsOpts.Stderr = cmd.OutOrStdout(), cmd.ErrOrStderr()
			return asExit(jobsCLI(container).StatsCommand(cmd.Context(), statsOpts))
		},
	}
	stats.Flags().BoolVar(&statsOpts.JSONOutput, "json", false, "print JSON")
	stats.Flags().IntVar(&statsOpts.Scheduled, "scheduled", 0, "also list up to N scheduled tasks")

	jobsCmd.AddCommand(trigger, stats)
	return jobsCmd
}

func jobsCLI(c *app.Container) *cli.JobsCLI {
	var enqueuer cli.SnapshotEnqueuer
	if c.Jobs != nil {
		enqueuer = c.Jobs
	}
	var inspector cli.Inspector
	if c.Inspector != nil {
		inspector = c.Inspector
	}
	return cli.NewJobsCLI(enqueuer, inspector)
}

func asExit(code int) error {
	if code == cli.ExitOK {
		return nil
	}
	return exitError{code: code}
}
