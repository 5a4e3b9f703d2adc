package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the page routes in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := demoTable()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATTERN\tAUTH\tPERMISSIONS\tROLES")
			for _, r := range table.Routes() {
				fmt.Fprintf(w, "%s\t%t\t%s\t%s\n",
					r.Pattern(), r.RequiresAuth(), listOrDash(r.RequiredPermissions()), listOrDash(r.RequiredRoles()))
			}
			return w.Flush()
		},
	}
}

func listOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}
