package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teemow/tailortalk/internal/config"
	"github.com/teemow/tailortalk/internal/google"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth [code]",
		Short: "Authorize access to a Google calendar",
		Long: `Authorize tailortalk to read free/busy information and create events on
your Google calendar.

Run without arguments to print the authorization URL. Open it, grant access
and run the command again with the code Google shows you:

  tailortalk auth
  tailortalk auth 4/0AX4XfWh...

Requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET. Use --account to keep
tokens for more than one Google account.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			if err := google.CheckCredentials(); err != nil {
				return err
			}

			if len(args) == 0 {
				printAuthURL(cmd.OutOrStdout(), cfg.Account)
				return nil
			}

			provider, err := google.NewFileTokenProvider()
			if err != nil {
				return err
			}
			if err := google.SaveToken(cmd.Context(), provider, cfg.Account, args[0]); err != nil {
				return err
			}
			path, err := provider.TokenPath(cfg.Account)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token for account %q saved to %s\n", cfg.Account, path)
			return nil
		},
	}

	return cmd
}

func printAuthURL(w io.Writer, account string) {
	fmt.Fprintf(w, "Visit this URL to authorize account %q:\n\n%s\n\n", account, google.GetAuthURL(account))
	fmt.Fprintf(w, "Then run: tailortalk auth --account %s <code>\n", account)
}
