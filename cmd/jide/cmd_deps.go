package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/jide/project"
)

func newDepsCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "deps [dir]",
		Short: "Print the dependency graph of a project",
		Long: `Print every class target with its state and dependencies, followed by
the dependency cycles. Each cycle is compiled as one job.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			p, _, err := openProject(cmd.Context(), cmd, dir)
			if err != nil {
				return err
			}

			switch outputFormat {
			case "text":
				return printDeps(cmd.OutOrStdout(), p)
			case "dot":
				return printDot(cmd.OutOrStdout(), p)
			default:
				return fmt.Errorf("unknown format: %s", outputFormat)
			}
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format (text, dot)")
	return cmd
}

func printDeps(w io.Writer, p *project.Project) error {
	for _, t := range p.Targets() {
		fmt.Fprintf(w, "%s [%s] %s\n", t.Name, t.State(), t.Path)
		deps, err := p.Dependencies(t.Name)
		if err != nil {
			return err
		}
		for _, e := range deps {
			fmt.Fprintf(w, "  %s %s\n", e.Kind, e.To.Name)
		}
	}

	cycles := p.Cycles()
	if len(cycles) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "cycles:")
	for _, c := range cycles {
		fmt.Fprintf(w, "  %s\n", strings.Join(c, " "))
	}
	return nil
}

func printDot(w io.Writer, p *project.Project) error {
	fmt.Fprintln(w, "digraph deps {")
	for _, pkg := range p.Packages() {
		fmt.Fprintf(w, "  subgraph %q {\n", "cluster_"+pkg.Name)
		fmt.Fprintf(w, "    label = %q;\n", pkg.Name)
		for _, t := range pkg.Targets() {
			fmt.Fprintf(w, "    %q;\n", t.Name)
		}
		fmt.Fprintln(w, "  }")
	}
	for _, t := range p.Targets() {
		deps, err := p.Dependencies(t.Name)
		if err != nil {
			return err
		}
		for _, e := range deps {
			style := ""
			if e.Kind != project.Uses {
				style = " [style=bold]"
			}
			fmt.Fprintf(w, "  %q -> %q%s;\n", e.From.Name, e.To.Name, style)
		}
	}
	fmt.Fprintln(w, "}")
	return nil
}
