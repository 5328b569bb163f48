package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/newthinker/strata/internal/strategy"
	"github.com/newthinker/strata/internal/strategy/factory"
)

var strategiesOutput string

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List available strategy types and their parameters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printCatalog(cmd.OutOrStdout(), factory.Catalog(), strategiesOutput)
	},
}

func init() {
	strategiesCmd.Flags().StringVarP(&strategiesOutput, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.AddCommand(strategiesCmd)
}

func printCatalog(w io.Writer, defs []strategy.Definition, format string) error {
	switch format {
	case "json":
		return writeJSON(w, defs)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(defs); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tPARAMETERS\tDESCRIPTION")
	for _, d := range defs {
		params := make([]string, 0, len(d.Fields))
		for _, f := range d.Fields {
			if f.Default != nil {
				params = append(params, fmt.Sprintf("%s=%v", f.Name, f.Default))
			} else {
				params = append(params, f.Name)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Type, strings.Join(params, ","), d.Description)
	}
	return tw.Flush()
}
