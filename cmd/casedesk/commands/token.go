package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yshengliao/casedesk/app"
	"github.com/yshengliao/casedesk/auth"
)

func newTokenCmd(configPath *string) *cobra.Command {
	var (
		loader   string
		username string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a configured user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(loader, *configPath)
			if err != nil {
				return err
			}
			directory := auth.NewDirectory(app.UsersFromConfig(cfg.Users))
			user, ok := directory.Lookup(username)
			if !ok {
				return fmt.Errorf("user %q is not configured", username)
			}

			tokens := auth.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.Issuer)
			token, err := tokens.GenerateAccessToken(user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&loader, "loader", "bofry", "config loader: simple or bofry")
	cmd.Flags().StringVarP(&username, "user", "u", "", "username (required)")
	cmd.MarkFlagRequired("user")

	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for the users section of the config",
		Long:  "Print a bcrypt hash. Without an argument the password is read from the first line of stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password must not be empty")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	return cmd
}
