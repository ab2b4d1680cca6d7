package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lockveil/lockveil/internal/backdrop"
	"github.com/lockveil/lockveil/internal/config"
	"github.com/lockveil/lockveil/internal/logger"
	"github.com/lockveil/lockveil/internal/preview"
	"github.com/lockveil/lockveil/internal/screencopy"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve backdrop previews over HTTP",
	Long: `Start an HTTP server that produces blurred backdrops on demand.

GET /backdrop.png returns the latest backdrop, POST /api/refresh runs a
new capture-and-blur cycle, and /api/stream is a websocket that pushes
a message whenever a fresh backdrop is available.`,
	Example: `  # Serve previews on the default port (8080)
  lockveil serve

  # Custom port and a stronger blur
  lockveil serve --port 9090 --scale 2`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "preview server port")
	viper.BindPFlag("preview_port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}
	applyFlagOverrides(configMgr)
	if viper.IsSet("preview_port") {
		if port := viper.GetInt("preview_port"); port > 0 {
			configMgr.SetPreviewPort(port)
		}
	}
	cfg := configMgr.Get()

	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("serve")
	log.Info().Str("config", configMgr.GetConfigPath()).Msg("Configuration loaded")

	svc, err := screencopy.NewX11Service()
	if err != nil {
		return fmt.Errorf("failed to connect to capture service: %w", err)
	}
	defer svc.Close()

	pipeline := backdrop.NewPipeline(svc, cfg.Workers)
	server := preview.NewServer(pipeline, svc.Root(), cfg.ScaleFactor)

	return server.Start(cfg.PreviewPort)
}
