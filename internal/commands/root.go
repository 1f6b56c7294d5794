// Package commands implements the filez command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/my-own-web-services/mows-sub001/internal/config"
	"github.com/my-own-web-services/mows-sub001/internal/output"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"github.com/my-own-web-services/mows-sub001/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var (
	flagJSON        bool
	flagServerURL   string
	flagIdentityURL string
	flagDebug       bool

	cfg    *config.Config
	client *filez.Client
)

var rootCmd = &cobra.Command{
	Use:   "filez",
	Short: "Filez CLI: manage your files from the terminal",
	Long: `Filez CLI lets you upload, list, group and share files on a Filez
server without leaving the terminal.

Get started:
  filez login                 Authenticate via browser (device flow)
  filez register              Create your Filez user
  filez mkgroup Inbox         Create a static file group
  filez upload report.pdf     Upload a file`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if flagServerURL != "" {
			cfg.ServerURL = flagServerURL
		}
		if flagIdentityURL != "" {
			cfg.IdentityURL = flagIdentityURL
		}
		client, err = newClient(cfg)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagServerURL, "server", "", "Override server URL (default: from config or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&flagIdentityURL, "identity", "", "Override identity service URL (default: the server URL)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Log every HTTP request to stderr")
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output.Errorf("Error: %v\n", err)
		return err
	}
	return nil
}

func newClient(c *config.Config) (*filez.Client, error) {
	fc := filez.Config{
		ServerURL:     c.ServerURL,
		IdentityURL:   c.IdentityBaseURL(),
		ApplicationID: c.AppID,
		SkipIdentity:  c.SkipIdentity,
	}
	if flagDebug {
		fc.Logger = logger.New(os.Stderr).EnableDebug(true)
	}
	return filez.NewClient(fc)
}

// requireAuth opens a session with the stored access token.
func requireAuth(ctx context.Context) error {
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	if cfg.SkipIdentity {
		return nil
	}
	if !cfg.HasToken() {
		return fmt.Errorf("not authenticated: run \"filez login\" first")
	}
	return openSession(ctx, client, cfg.Token)
}

func openSession(ctx context.Context, c *filez.Client, token string) error {
	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	if err := c.Init(ctx, tokens); err != nil {
		var apiErr *filez.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return fmt.Errorf("token rejected by server: run \"filez login\" again")
		}
		return fmt.Errorf("opening session: %w", err)
	}
	return nil
}

// currentUser fetches the caller's user record. The call does not check the status code,
// so an unregistered caller decodes into a user without an id.
func currentUser(ctx context.Context) (*filez.User, error) {
	user, err := client.GetUserInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("no Filez user for this identity: run \"filez register\" first")
	}
	return user, nil
}

func parseOrder(s string) (*filez.SortOrder, error) {
	var order filez.SortOrder
	switch s {
	case "":
		return nil, nil
	case "asc", "Ascending":
		order = filez.SortAscending
	case "desc", "Descending":
		order = filez.SortDescending
	default:
		return nil, fmt.Errorf("invalid order %q: use asc or desc", s)
	}
	return &order, nil
}

// listParams builds paging parameters; zero or negative limits mean "no limit".
func listParams(from, limit int, sortField, order string) (filez.ListParams, error) {
	p := filez.ListParams{FromIndex: from}
	if limit > 0 {
		p.Limit = &limit
	}
	if sortField != "" {
		p.SortField = &sortField
	}
	o, err := parseOrder(order)
	if err != nil {
		return p, err
	}
	p.SortOrder = o
	return p, nil
}
