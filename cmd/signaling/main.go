package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd runs the relay when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "signaling",
	Short: "Push-to-talk signaling relay for security and management teams",
	Long: `signaling relays WebRTC negotiation, push-to-talk audio and text chat
between security and management clients connected over WebSocket.`,
	RunE: runServe,
}

func main() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.AddCommand(serveCmd, statusCmd, presenceCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
