package cmd

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "hookrelay",
	Short: "Webhook to websocket relay",
	Long: `hookrelay registers a callback URL with an event source, keeps every
event posted to it in memory and shows them live in the browser.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
