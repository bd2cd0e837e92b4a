package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/railcar-dev/railcar/internal/definitions"
	"github.com/railcar-dev/railcar/internal/scheduler"
	"github.com/railcar-dev/railcar/internal/store"
	"github.com/railcar-dev/railcar/internal/streaming"
	"github.com/railcar-dev/railcar/pkg/mcp"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "railcar",
		Short: "Declarative workflow runner",
		Long: "Railcar executes declarative YAML workflows: ordered steps of\n" +
			"agent reviews, prompt transforms, and shell commands, with\n" +
			"conditional skipping, bounded retries, and variable capture.",
		SilenceUsage: true,
	}
	root.AddCommand(
		newRunCmd(),
		newListCmd(),
		newHistoryCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}

func newRunCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Execute a workflow and stream its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(loadConfig())
			if err != nil {
				return err
			}
			defer a.Close()

			def, err := a.loader.Load(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var sink streaming.ProgressSink = streaming.NewWriterSink(cmd.OutOrStdout())
			if jsonOut {
				sink = streaming.NopSink{}
			}

			result, err := a.engine.Run(ctx, *def, sink)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			}
			if !result.Passed {
				return fmt.Errorf("run finished %s", result.Status)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the full run result as JSON instead of progress lines")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available workflow definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig()
			loader, err := definitions.NewLoader(cfg.WorkflowsDir)
			if err != nil {
				return err
			}
			loader.Logger = newLogger(cfg)

			summaries, err := loader.List()
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no workflows in %s\n", cfg.WorkflowsDir)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTEPS\tFILE\tDESCRIPTION")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.Name, s.StepCount, s.File, s.Description)
			}
			return w.Flush()
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var workflow string
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past runs, or one run with its event log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			s, err := openHistory(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer s.Close()

			ctx := cmd.Context()
			if len(args) == 1 {
				run, err := s.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				events, err := s.GetEvents(ctx, args[0], 0)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"run": run, "events": events})
			}

			filter := store.RunFilter{Workflow: workflow, Limit: limit}
			runs, err := s.ListRuns(ctx, filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tWORKFLOW\tSTATUS\tPASSED\tSTARTED")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
					run.ID, run.Workflow, run.Status, run.Passed,
					run.StartedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&workflow, "workflow", "", "only runs of this workflow")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve railcar tools over MCP on stdio and run scheduled workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig()
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if len(cfg.Schedules) > 0 {
				sched, err := scheduler.NewScheduler(cfg.Schedules, a, a.logger)
				if err != nil {
					return err
				}
				if err := sched.Start(ctx); err != nil {
					return err
				}
				defer sched.Stop()
			}

			srv := mcp.NewRailcarServer(mcp.RailcarServerDeps{
				Catalog: a.loader,
				Runner:  a.engine,
				History: a.history,
				Logger:  a.logger,
			})
			return srv.Serve(ctx)
		},
	}
}
