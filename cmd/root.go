package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// rootCmd represents the base command for the tailortalk application
var rootCmd = &cobra.Command{
	Use:   "tailortalk",
	Short: "Book calendar appointments through a conversation",
	Long: `tailortalk books appointments on a calendar by talking to you.
Tell it when you would like to meet and it finds free slots, asks you to
pick one and confirms the booking.

It can run as:
  - An interactive chat in the terminal (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// configFile is the explicit config file given with --config
var configFile string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "tailortalk version %s\n" .Version}}`)

	// If no subcommand is provided, start a chat
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "chat")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// addConfigFlags registers the flags that override config file and
// environment settings. Flag names map to config keys with "-" read as "_".
func addConfigFlags(flags *pflag.FlagSet) {
	flags.StringVar(&configFile, "config", "", "Config file (default: ./tailortalk.yaml or $XDG_CONFIG_HOME/tailortalk/tailortalk.yaml)")
	flags.String("log-level", "info", "Log level: debug, info, warn or error. Can also use TAILORTALK_LOG_LEVEL env var.")
	flags.String("log-format", "text", "Log format: text or json. Can also use TAILORTALK_LOG_FORMAT env var.")
	flags.String("timezone", "UTC", "IANA time zone used to resolve and show times. Can also use TAILORTALK_TIMEZONE env var.")
	flags.String("calendar-backend", "google", "Calendar backend: google or memory. Can also use TAILORTALK_CALENDAR_BACKEND env var.")
	flags.String("calendar-id", "primary", "Google calendar to book on. Can also use TAILORTALK_CALENDAR_ID env var.")
	flags.String("account", "default", "Google account whose token is used. Can also use TAILORTALK_ACCOUNT env var.")
	flags.String("session-store", "memory", "Session store: memory or valkey. Can also use TAILORTALK_SESSION_STORE env var.")
}

func init() {
	addConfigFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSlotsCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
