package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lockveil/lockveil/internal/config"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage lockveil configuration",
	Long:  `View and manage lockveil configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Example: `  # Show configuration as YAML (default)
  lockveil config show

  # Show configuration as JSON
  lockveil config show --format json`,
	RunE: runConfigShow,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "yaml", "output format (yaml or json)")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}
	cfg := configMgr.Get()

	var data []byte
	switch configFormat {
	case "json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(cfg)
	default:
		return fmt.Errorf("unknown format %q", configFormat)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
