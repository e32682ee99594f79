package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhamidi/jide/compile"
	"github.com/dhamidi/jide/observability"
	"github.com/dhamidi/jide/project"
)

func newWatchCmd() *cobra.Command {
	var metricsAddr string
	var autoCompile bool

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a project and keep its dependency graph current",
		Long: `Watch the sources of a project. Added, changed and removed files update
the dependency graph and invalidate dependent classes. With --compile the
invalid classes are compiled after every change.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, cfg, err := openProject(ctx, cmd, dir)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics") {
				cfg.Metrics.Address = metricsAddr
			}
			if cmd.Flags().Changed("compile") {
				cfg.Watch.AutoCompile = autoCompile
			}

			if cfg.Metrics.Address != "" {
				srv := observability.NewServer(cfg.Metrics.Address)
				srv.Start()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Stop(shutdownCtx)
				}()
			}

			out := cmd.OutOrStdout()
			s := compile.NewScheduler(p, cfg.NewCompiler(), cfg.SchedulerConfig(p, &printObserver{w: out}))
			defer s.Close()

			trigger := func() {
				if _, err := s.AutoCompile(ctx); err != nil && ctx.Err() == nil {
					fmt.Fprintf(out, "compile: %s\n", err)
				}
			}

			w, err := project.NewWatcher(p, cfg.Watch.Debounce, func(changes []project.Change) {
				for _, c := range changes {
					printChange(cmd, c)
				}
				if cfg.Watch.AutoCompile {
					go trigger()
				}
			})
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Close()

			fmt.Fprintf(out, "watching %s (%d classes)\n", p.RootDir, len(p.Targets()))
			if cfg.Watch.AutoCompile {
				go trigger()
			}
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&autoCompile, "compile", false, "compile invalid classes after every change")
	return cmd
}

func printChange(cmd *cobra.Command, c project.Change) {
	out := cmd.OutOrStdout()
	switch {
	case c.Removed:
		fmt.Fprintf(out, "removed %s\n", c.Path)
	case c.Target != "":
		fmt.Fprintf(out, "changed %s (%s)\n", c.Path, c.Target)
	default:
		fmt.Fprintf(out, "changed %s\n", c.Path)
	}
	if len(c.Invalidated) > 0 {
		fmt.Fprintf(out, "  invalidated %v\n", c.Invalidated)
	}
}
