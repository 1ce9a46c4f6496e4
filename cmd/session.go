package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ncmbridge/config"
	"ncmbridge/core/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the persisted session state",
	Long:  `Print the resolved session cookie file path and whether a session is currently persisted there.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		store := session.NewStore(session.ResolveCookieFile(cfg.CookieFile))
		store.LoadFromDisk()

		fmt.Printf("cookie file: %s\n", store.File())
		fmt.Printf("persisted:   %t\n", store.HasPersisted())
		fmt.Printf("cookie len:  %d\n", len(store.Get()))
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
}
