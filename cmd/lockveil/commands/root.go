package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "lockveil",
		Short: "lockveil - Blurred lock-screen backdrops",
		Long: `lockveil captures the current screen contents and produces a heavily
blurred backdrop image suitable for rendering behind a lock-screen UI.

The blur is a parallel triple box blur that approximates a Gaussian in
time independent of the blur radius.`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/lockveil/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("scale", 0, "output scale factor (blur radius is 32*scale)")
	rootCmd.PersistentFlags().Int("workers", 0, "blur worker count (default is the logical CPU count)")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("scale_factor", rootCmd.PersistentFlags().Lookup("scale"))
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
