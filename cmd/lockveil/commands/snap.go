package commands

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/image/draw"

	"github.com/lockveil/lockveil/internal/backdrop"
	"github.com/lockveil/lockveil/internal/config"
	"github.com/lockveil/lockveil/internal/logger"
	"github.com/lockveil/lockveil/internal/screencopy"
)

var (
	snapOutput string
	snapResize float64
)

var snapCmd = &cobra.Command{
	Use:   "snap",
	Short: "Capture and blur the screen once",
	Long: `Capture the current screen contents, blur them, and write the result
as a PNG file.`,
	Example: `  # Blur the screen into backdrop.png
  lockveil snap

  # Custom output path and a stronger blur
  lockveil snap --output /tmp/lock.png --scale 2

  # Save a half-size preview
  lockveil snap --resize 0.5`,
	RunE: runSnap,
}

func init() {
	snapCmd.Flags().StringVarP(&snapOutput, "output", "o", "", "output PNG path (default from config)")
	snapCmd.Flags().Float64Var(&snapResize, "resize", 1.0, "downscale factor for the saved image (0 < f <= 1)")
	rootCmd.AddCommand(snapCmd)
}

func runSnap(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}
	applyFlagOverrides(configMgr)
	cfg := configMgr.Get()

	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("snap")

	if snapResize <= 0 || snapResize > 1 {
		return fmt.Errorf("invalid resize factor %v", snapResize)
	}

	outputPath := cfg.OutputPath
	if snapOutput != "" {
		outputPath = snapOutput
	}

	svc, err := screencopy.NewX11Service()
	if err != nil {
		return fmt.Errorf("failed to connect to capture service: %w", err)
	}
	defer svc.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pipeline := backdrop.NewPipeline(svc, cfg.Workers)
	img, err := pipeline.Produce(ctx, svc.Root(), cfg.ScaleFactor)
	if err != nil {
		return fmt.Errorf("failed to produce backdrop: %w", err)
	}

	rgba := img.ToRGBA()
	if snapResize < 1 {
		w := int(float64(img.Width) * snapResize)
		h := int(float64(img.Height) * snapResize)
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), rgba, rgba.Bounds(), draw.Src, nil)
		rgba = scaled
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, rgba); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}

	log.Info().
		Str("path", outputPath).
		Int("width", rgba.Rect.Dx()).
		Int("height", rgba.Rect.Dy()).
		Msg("Backdrop written")

	return nil
}

// applyFlagOverrides copies any set global flags over the loaded
// configuration.
func applyFlagOverrides(configMgr *config.Manager) {
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			configMgr.SetLogLevel(level)
		}
	}
	if viper.IsSet("scale_factor") {
		if scale := viper.GetInt("scale_factor"); scale > 0 {
			configMgr.SetScaleFactor(scale)
		}
	}
	if viper.IsSet("workers") {
		if workers := viper.GetInt("workers"); workers > 0 {
			configMgr.SetWorkers(workers)
		}
	}
}
