package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finchley/flowdeck/internal/archive"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show archived node executions",
	Long: `Show the most recent node executions recorded in the local archive,
newest first. Requires archive.enabled: true in the config.

Examples:
  # Last 50 executions
  flowdeck history

  # Last 10, as JSON
  flowdeck history --limit 10 --json
  flowdeck history -n 10 --json | jq '.[].node_id'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Archive.Enabled || cfg.Archive.Path == "" {
			return fmt.Errorf("execution archive is not enabled (set archive.enabled and archive.path in the config)")
		}

		db, err := archive.NewDB(cfg.Archive.Path)
		if err != nil {
			return fmt.Errorf("opening execution archive: %w", err)
		}
		defer func() { _ = db.Close() }()

		executions, err := archive.Recent(db, historyLimit)
		if err != nil {
			return fmt.Errorf("reading execution archive: %w", err)
		}

		if historyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(executions)
		}

		if len(executions) == 0 {
			fmt.Println("no executions recorded")
			return nil
		}
		for _, e := range executions {
			line := fmt.Sprintf("%s  %-7s %s", e.RecordedAt.Format("2006-01-02 15:04:05"), e.Status, e.NodeID)
			if e.DurationMS > 0 {
				line += fmt.Sprintf(" (%dms)", e.DurationMS)
			}
			if e.Error != "" {
				line += "  " + e.Error
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "Maximum number of executions to show")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(historyCmd)
}
