package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwu339-pixel/web3-job-collector/internal/review"
	"github.com/cwu339-pixel/web3-job-collector/internal/table"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse collected postings interactively (TUI)",
	Long:  "Opens the split-pane review view over the table: all postings on the left, scored postings on the right.",
	RunE:  runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	tbl, err := table.Load(cfg.Storage.OutputPath)
	if err != nil {
		logger.Error("failed to load table", "error", err)
		os.Exit(1)
	}
	if tbl.Len() == 0 {
		fmt.Println("No postings collected yet. Run: web3jobs collect")
		return nil
	}

	if err := review.Run(tbl.Rows()); err != nil {
		fmt.Printf("TUI error: %v\n", err)
		os.Exit(1)
	}
	return nil
}
