package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/L1nMay/portscanner-console/internal/notify"
)

func newLoginCmd(a *App) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the bearer token sent with API calls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return errors.New("please provide --token")
			}
			if err := a.store.SetToken(token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			a.notify(notify.LevelOK, "Token saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Bearer token issued by the server")
	return cmd
}

func newLogoutCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.ClearToken(); err != nil {
				return fmt.Errorf("clear token: %w", err)
			}
			a.notify(notify.LevelInfo, "Token removed")
			return nil
		},
	}
}
