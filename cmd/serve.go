package cmd

import (
	"github.com/spf13/cobra"

	"ncmbridge/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge HTTP server",
	Long:  `Start the HTTP server that bridges the player to the NeteaseCloudMusicApi service.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
