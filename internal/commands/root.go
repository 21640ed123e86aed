// Package commands implements the cashctl command line client.
package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cashcount/internal/api"
	"cashcount/internal/core"
	"cashcount/internal/session"
)

var errNotLoggedIn = errors.New("not logged in, run `cashctl login` first")

// options are the persistent flags shared by every subcommand.
type options struct {
	apiURL    string
	configDir string
	timeout   time.Duration
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "cashctl",
		Short: "Record and review register cash counts",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	defaultAPI := os.Getenv("API_BASE_URL")
	if defaultAPI == "" {
		defaultAPI = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api", defaultAPI, "cash count API base URL")
	rootCmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "directory holding the saved login (default: user config dir)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "API request timeout")

	rootCmd.AddCommand(
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newRegistriesCommand(opts),
		newCountsCommand(opts),
		newReconcileCommand(),
	)

	return rootCmd
}

func (o *options) client() (*api.Client, error) {
	return api.NewClient(o.apiURL, nil, o.timeout)
}

func (o *options) store() (*session.FileStore, error) {
	return session.NewFileStore(o.configDir)
}

// credentials loads the saved login.
func (o *options) credentials() (core.Credentials, error) {
	store, err := o.store()
	if err != nil {
		return core.Credentials{}, err
	}
	creds, err := store.Load()
	if errors.Is(err, session.ErrNotFound) {
		return core.Credentials{}, errNotLoggedIn
	}
	return creds, err
}

// apiError rewords rejected credentials so the user knows to log in again.
func apiError(err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		return fmt.Errorf("%w; run `cashctl login` again", err)
	}
	return err
}
