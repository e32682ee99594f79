package main

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dhamidi/jide/compile"
)

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [dir] [class]",
		Short: "Compile the invalid classes of a project",
		Long: `Compile the invalid classes of a project with javac.

Without a class every invalid class is compiled. With a fully qualified
class name that class is compiled together with the invalid classes it
depends on. Classes depending on each other are compiled in one job.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			p, cfg, err := openProject(cmd.Context(), cmd, dir)
			if err != nil {
				return err
			}

			obs := &printObserver{w: cmd.OutOrStdout()}
			s := compile.NewScheduler(p, cfg.NewCompiler(), cfg.SchedulerConfig(p, obs))
			defer s.Close()

			var jobs []*compile.Job
			if len(args) > 1 {
				jobs, err = s.CompileTarget(cmd.Context(), args[1])
			} else {
				jobs, err = s.CompileAll(cmd.Context())
			}
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to compile")
				return nil
			}

			failed := 0
			for _, job := range jobs {
				if err := job.Wait(cmd.Context()); err != nil && !errors.Is(err, compile.ErrAborted) {
					return err
				}
				if job.Status() != compile.StatusSucceeded {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d jobs failed", failed, len(jobs))
			}
			return nil
		},
	}
	return cmd
}

// printObserver writes compile progress for a terminal.
type printObserver struct {
	mu sync.Mutex
	w  io.Writer
}

func (o *printObserver) JobStarted(job *compile.Job) {
	o.printf("compiling %v\n", job.Targets)
}

func (o *printObserver) Diagnostic(target string, d compile.Diagnostic) {
	o.printf("%s\n", d)
}

func (o *printObserver) JobFinished(job *compile.Job, success bool) {
	o.printf("%v: %s\n", job.Targets, job.Status())
}

func (o *printObserver) SchedulingFailure(target string, err error) {
	o.printf("cannot compile %s: %s\n", target, err)
}

func (o *printObserver) ProjectMessage(msg string) {
	o.printf("%s\n", msg)
}

func (o *printObserver) printf(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.w, format, args...)
}
