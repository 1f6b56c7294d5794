package commands

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/my-own-web-services/mows-sub001/internal/config"
	"github.com/my-own-web-services/mows-sub001/internal/output"
	"github.com/spf13/cobra"
)

var (
	flagToken     string
	flagNoBrowser bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the Filez identity service",
	Long: `Authenticate using either an existing access token or the device
authorization flow.

Access Token:
  filez login --token eyJhbGciOi...

Device Flow (default):
  filez login
  Opens your browser to approve the CLI.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Clear(); err != nil {
			return fmt.Errorf("clearing config: %w", err)
		}
		output.Printf("Logged out.\n")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&flagToken, "token", "", "Identity access token for direct authentication")
	loginCmd.Flags().BoolVar(&flagNoBrowser, "no-browser", false, "Print the verification URL instead of opening a browser")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if cfg.SkipIdentity {
		return fmt.Errorf("identity is disabled in the config (skip_identity); nothing to log in to")
	}

	token := flagToken
	if token == "" {
		var err error
		token, err = deviceFlowToken(ctx)
		if err != nil {
			return err
		}
	}

	if err := openSession(ctx, client, token); err != nil {
		return err
	}

	cfg.Token = token
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	user, err := client.GetUserInfo(ctx)
	if err == nil && user.ID != "" && user.Email != nil {
		output.Printf("Logged in as %s\n", *user.Email)
		return nil
	}
	output.Printf("Logged in. Run \"filez register\" to create your Filez user.\n")
	return nil
}

func deviceFlowToken(ctx context.Context) (string, error) {
	oauthCfg := client.DeviceAuthConfig()

	auth, err := oauthCfg.DeviceAuth(ctx)
	if err != nil {
		return "", fmt.Errorf("requesting device code: %w", err)
	}

	verifyURL := auth.VerificationURIComplete
	if verifyURL == "" {
		verifyURL = auth.VerificationURI
	}
	if !flagNoBrowser {
		output.Printf("Opening browser to complete authentication...\n")
		_ = openBrowser(verifyURL)
	}
	output.Printf("If the browser doesn't open, visit:\n  %s\n\n", verifyURL)
	output.Printf("Your code: %s\n\n", auth.UserCode)
	output.Printf("Waiting for approval...\n")

	token, err := oauthCfg.DeviceAccessToken(ctx, auth)
	if err != nil {
		return "", fmt.Errorf("waiting for approval: %w", err)
	}
	return token.AccessToken, nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}
	return cmd.Start()
}
