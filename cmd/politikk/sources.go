package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSourcesCmd(flags *globalFlags) *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the configured meeting sources",
		Example: `  politikk sources
  politikk sources --group extended`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := flags.loadRegistry()
			if err != nil {
				return fmt.Errorf("load registry: %w", err)
			}

			sources := reg.Sources
			if group != "" {
				sources = reg.SourcesForGroups([]string{group})
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tPROVIDER\tGROUPS\tBATCH\tRENDER\tURL")
			for _, s := range sources {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
					s.Name, s.Type, dash(s.Provider), strings.Join(s.Groups, ","), dash(s.Batch), s.Render, s.URL)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "only list sources in this group")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
