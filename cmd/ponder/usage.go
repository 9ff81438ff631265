package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ponderhq/ponder/internal/config"
	"github.com/ponderhq/ponder/internal/usage"
)

var usageDays int

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show token usage totals",
	Long:  `Show per-component token totals from the usage ledger.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		path := cfg.Usage.Path
		if path == "" {
			path = usage.DefaultPath()
		}
		ledger, err := usage.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
			os.Exit(1)
		}
		defer ledger.Close()

		cutoff := time.Time{}
		if usageDays > 0 {
			cutoff = time.Now().AddDate(0, 0, -usageDays)
		}
		totals, err := ledger.TotalsSince(cutoff)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading ledger: %v\n", err)
			os.Exit(1)
		}

		if len(totals) == 0 {
			fmt.Println("no usage recorded")
			return
		}

		bold := color.New(color.Bold)
		bold.Printf("%-16s %10s %14s %14s\n", "component", "requests", "input tokens", "output tokens")
		var requests int
		var input, output int64
		for _, t := range totals {
			fmt.Printf("%-16s %10d %14d %14d\n", t.Component, t.Requests, t.InputTokens, t.OutputTokens)
			requests += t.Requests
			input += t.InputTokens
			output += t.OutputTokens
		}
		bold.Printf("%-16s %10d %14d %14d\n", "total", requests, input, output)
	},
}

func init() {
	usageCmd.Flags().IntVar(&usageDays, "days", 0, "Limit totals to the last N days")
}
