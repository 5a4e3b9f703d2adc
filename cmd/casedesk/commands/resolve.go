package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yshengliao/casedesk/auth"
	"github.com/yshengliao/casedesk/nav"
)

func newResolveCmd(configPath *string) *cobra.Command {
	var (
		loader   string
		token    string
		username string
		role     string
		perms    []string
		showHTML bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <path>",
		Short: "Open a location as a given user and show what would be mounted",
		Long: `Resolve opens <path> the way a freshly loaded page would, using the
built-in demo data. Identity comes from --token (validated against the
configured secret) or from --role/--perm; without either the visitor is
anonymous.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oracle := nav.AuthOracle(nav.Anonymous)
			switch {
			case token != "":
				cfg, err := loadConfig(loader, *configPath)
				if err != nil {
					return err
				}
				tokens := auth.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.Issuer)
				o, err := tokens.OracleFromToken(token)
				if err != nil {
					return err
				}
				oracle = o
			case role != "" || len(perms) > 0:
				oracle = nav.NewStaticOracle(nav.AuthState{
					Token:       "cli",
					User:        &nav.User{ID: username, Username: username},
					Role:        role,
					Permissions: perms,
				})
			}

			table, err := demoTable()
			if err != nil {
				return err
			}
			history := nav.NewMemoryHistory(args[0])
			mount := nav.NewMemoryMount()
			router := nav.New(table, oracle, history, mount)
			res := router.Init(cmd.Context())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "path:      %s\n", res.Path)
			fmt.Fprintf(out, "outcome:   %s\n", res.Outcome)
			fmt.Fprintf(out, "mount:     %s\n", res.Mount)
			fmt.Fprintf(out, "rendered:  %s\n", res.Rendered)
			fmt.Fprintf(out, "location:  %s\n", history.Location())
			fmt.Fprintf(out, "current:   %s\n", router.CurrentPath())
			if res.Err != nil {
				fmt.Fprintf(out, "error:     %v\n", res.Err)
			}
			if showHTML {
				fmt.Fprintln(out)
				fmt.Fprintln(out, mount.Content())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&loader, "loader", "bofry", "config loader: simple or bofry")
	cmd.Flags().StringVarP(&token, "token", "t", "", "access token to authenticate with")
	cmd.Flags().StringVarP(&username, "user", "u", "cli", "username for --role/--perm identities")
	cmd.Flags().StringVarP(&role, "role", "r", "", "role of the visitor")
	cmd.Flags().StringSliceVarP(&perms, "perm", "p", nil, "permission of the visitor (repeatable)")
	cmd.Flags().BoolVar(&showHTML, "html", false, "print the mounted fragment")

	return cmd
}
