package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finchley/flowdeck/internal/config"
	"github.com/finchley/flowdeck/internal/conn"
)

var setURLCmd = &cobra.Command{
	Use:   "config:set-url <url>",
	Short: "Persist the backend URL in the config file",
	Long: `Validate a backend base URL and write it to the config file's
server.url key, preserving comments and every other setting.

Examples:
  flowdeck config:set-url http://localhost:8080
  flowdeck config:set-url https://flows.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := viper.ConfigFileUsed()
		if path == "" {
			path = ".flowdeck/config.yaml"
		}
		if err := setServerURL(path, args[0]); err != nil {
			return err
		}
		fmt.Printf("server.url set to %s in %s\n", args[0], path)
		return nil
	},
}

// setServerURL validates rawURL the same way the app does at startup
// (it must derive a websocket URL) before persisting it.
func setServerURL(path, rawURL string) error {
	if _, err := conn.DeriveURL(rawURL); err != nil {
		return fmt.Errorf("invalid backend URL %q: %w", rawURL, err)
	}
	if err := config.SaveServerURL(path, rawURL); err != nil {
		return fmt.Errorf("saving backend URL: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(setURLCmd)
}
