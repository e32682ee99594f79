package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/jide/java/entity"
	"github.com/dhamidi/jide/java/parser"
)

func newParseCmd() *cobra.Command {
	var tree bool
	var projectDir string

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a .java file and print its class info as JSON",
		Long: `Parse a .java file and print its class info as JSON.

With --tree the structural parse tree is printed instead. With --project
names are resolved against the sources and classpath of that project.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			src, err := os.ReadFile(filename)
			if err != nil {
				return fmt.Errorf("read java file: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if tree {
				return enc.Encode(parser.ParseFile(src))
			}

			var resolver entity.Resolver
			if projectDir != "" {
				p, _, err := openProject(cmd.Context(), cmd, projectDir)
				if err != nil {
					return err
				}
				resolver = p.Resolver()
			}
			info := parser.Parse(src, parser.Options{File: filename, Resolver: resolver})
			return enc.Encode(info)
		},
	}

	cmd.Flags().BoolVar(&tree, "tree", false, "print the parse tree instead of the class info")
	cmd.Flags().StringVar(&projectDir, "project", "", "resolve names against this project directory")
	return cmd
}
