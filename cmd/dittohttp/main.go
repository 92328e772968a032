package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "dittohttp",
		Short: "dittohttp - concurrent static file server",
		Long: "Serve a directory over HTTP/1.1 with per-client rate limiting, " +
			"per-resource visit counts and a bounded worker pool.",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		initCmd(),
		raceCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dittohttp %s\n", Version)
		},
	}
}
