package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "repclock",
	Short: "repclock - workout session timer",
	Long: `repclock runs a workout day from a YAML definition: preparation countdown,
workout clock, rest between sets, and set-by-set progression. Sessions are saved
locally after every step and pushed to a repclock server when they finish.`,
	SilenceUsage: true,
}

var (
	configPath string
	logPath    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "client config file")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-file", "", "log file (default <store dir>/repclock.log)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("repclock", Version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
