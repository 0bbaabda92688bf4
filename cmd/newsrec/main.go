package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "newsrec",
		Short: "Classify news articles and recommend them from click history",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(ingestCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCommand())
	root.AddCommand(recommendCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(pruneCmd())

	return root
}

func ingestCmd() *cobra.Command {
	var (
		queries    []string
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch, classify, and persist news articles once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(queries, maxResults)
		},
	}

	cmd.Flags().StringSliceVar(&queries, "query", nil, "search queries (default: from config)")
	cmd.Flags().IntVar(&maxResults, "max", 0, "max results per query (default: from config)")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with periodic ingestion and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func recommendCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "recommend <user-id>",
		Short: "Show recommendations for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(args[0], limit, jsonOutput)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "max recommendations to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <user-id>",
		Short: "Show a user's interaction statistics and preferences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(args[0])
		},
	}
	return cmd
}

func pruneCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete articles older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(days)
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "retention window in days (default: from config)")
	return cmd
}
