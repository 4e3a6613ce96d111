package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/depsane/pkg/toolinfer"
)

func newToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools whose packages are inferred from npm scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "BINARY\tPACKAGES\tCONFIG FILES\tDESCRIPTION")
			for _, s := range toolinfer.DefaultRegistry().All() {
				configs := "-"
				if files := s.ConfigFiles(); len(files) > 0 {
					configs = strings.Join(files, ", ")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					s.Binary(),
					strings.Join(s.Packages(), ", "),
					configs,
					s.Description(),
				)
			}
			return w.Flush()
		},
	}
}
