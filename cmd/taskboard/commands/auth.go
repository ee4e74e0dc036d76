package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/printer"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an API token for the configured server",
	Long: `Store an API token in the system keyring. It is sent as a bearer
token on every request and on the push channel. Tokens are kept per
server host.

Without --token you are prompted for it.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored API token for the configured server",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "API token (prompted when omitted)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	token := strings.TrimSpace(loginToken)
	if token == "" {
		err := huh.NewInput().
			Title(fmt.Sprintf("API token for %s", cfg.Server.BaseURL)).
			EchoMode(huh.EchoModePassword).
			Value(&token).
			Run()
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		token = strings.TrimSpace(token)
	}
	if token == "" {
		return printer.Error("no token given", "", []string{"Pass it directly:\n  taskboard login --token <token>"})
	}

	creds, err := openCredentials()
	if err != nil {
		return printer.Error("keyring unavailable", err.Error(), nil)
	}
	if err := creds.SetToken(cfg.Server.BaseURL, token); err != nil {
		return printer.Error("failed to store token", err.Error(), nil)
	}

	printer.Success(cmd.OutOrStdout(), "Token stored for %s", cfg.Server.BaseURL)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	creds, err := openCredentials()
	if err != nil {
		return printer.Error("keyring unavailable", err.Error(), nil)
	}
	if err := creds.DeleteToken(cfg.Server.BaseURL); err != nil {
		return printer.Error("failed to remove token", err.Error(), nil)
	}

	printer.Success(cmd.OutOrStdout(), "Token removed for %s", cfg.Server.BaseURL)
	return nil
}
