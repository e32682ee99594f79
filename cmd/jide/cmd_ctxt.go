package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/jide/java/parser"
	"github.com/dhamidi/jide/project"
)

func newCtxtCmd() *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "ctxt <file.java>...",
		Short: "Write the .ctxt side file of Java sources",
		Long: `Write the .ctxt side file next to each Java source. The file lists the
documentation comment and parameter names of every method, constructor
and initializer. With --show the existing side files are printed as JSON
instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, filename := range args {
				ctxt := strings.TrimSuffix(filename, ".java") + ".ctxt"
				if show {
					comments, err := project.ReadContextFile(ctxt)
					if err != nil {
						return err
					}
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					if err := enc.Encode(comments); err != nil {
						return fmt.Errorf("encode json: %w", err)
					}
					continue
				}

				src, err := os.ReadFile(filename)
				if err != nil {
					return fmt.Errorf("read java file: %w", err)
				}
				info := parser.Parse(src, parser.Options{File: filename})
				if err := project.WriteContextFile(ctxt, info.Comments); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ctxt)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "print existing side files instead of writing them")
	return cmd
}
