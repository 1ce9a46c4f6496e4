package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ncmbridge/server"
)

var rootCmd = &cobra.Command{
	Use:   "ncm-bridge",
	Short: "ncm-bridge is a local bridge over the NeteaseCloudMusicApi service.",
	Long: `ncm-bridge exposes a stable, normalized HTTP API over the
NeteaseCloudMusicApi service: search, playlists, track metadata, stream
URLs, lyrics and cookie-based authentication, with a single persisted
session.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
