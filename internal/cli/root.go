package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/luismarketmedia/lets-talk-sub000/internal/ui"
	"github.com/luismarketmedia/lets-talk-sub000/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lets-talk",
	Short: "Mesh video meetings from your terminal, with host-approved entry",
	Long: `lets-talk connects N participants in a named room and negotiates a direct
WebRTC session between every pair - no media server in the middle. The first
participant to join a room is its host and decides who else gets in.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
