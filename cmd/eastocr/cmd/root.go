package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/eastocr/internal/config"
	"github.com/MeKo-Tech/eastocr/internal/models"
	"github.com/MeKo-Tech/eastocr/internal/pipeline"
	"github.com/MeKo-Tech/eastocr/internal/version"
	"github.com/spf13/cobra"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration, loaded before every command runs.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string

	// configFlags maps a command to the config keys its flags override.
	configFlags = map[*cobra.Command]map[string]string{}

	// newPipeline builds the OCR pipeline for a command.
	newPipeline = func(cfg pipeline.Config) (*pipeline.Pipeline, error) {
		return pipeline.NewBuilder().WithConfig(cfg).Build()
	}
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "eastocr",
	Short: "EAST text detection with Tesseract OCR",
	Long: `eastocr recognises text in images with Tesseract, optionally restricted to
the text regions found by the EAST scene text detector.

This tool provides:
- Whole-image OCR or per-region OCR driven by EAST detections
- Rotated non-maximum suppression and clipping of detected boxes
- Overlay images with the detected regions and their ordinals
- An HTTP and WebSocket server with Prometheus metrics

Examples:
  eastocr ocr receipt.png
  eastocr ocr sign.jpg --detect --overlay boxes.png --output sign.txt
  eastocr detect sign.jpg --format json
  eastocr serve --port 8080`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			printVersion(cmd.OutOrStdout())
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $XDG_CONFIG_HOME/eastocr, /etc/eastocr)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("models-dir", models.DefaultModelsDir,
		"directory containing the EAST model and tessdata (can also be set via "+models.EnvModelsDir+")")

	rootCmd.Flags().Bool("version", false, "print version information and exit")

	bindConfigFlags(rootCmd, map[string]string{
		"verbose":    "verbose",
		"log_level":  "log-level",
		"models_dir": "models-dir",
	})
}

// bindConfigFlags records which config keys the flags of cmd override. The
// binding happens in setup, once the command to run is known.
func bindConfigFlags(cmd *cobra.Command, keys map[string]string) {
	configFlags[cmd] = keys
}

// setup binds the flags of the running command and its parents, loads the
// configuration and installs the logger.
func setup(cmd *cobra.Command, _ []string) error {
	loader := GetConfigLoader()
	for c := cmd; c != nil; c = c.Parent() {
		if err := loader.BindFlags(cmd.Flags(), configFlags[c]); err != nil {
			return err
		}
	}

	cfg, err := loader.LoadWithFile(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	globalConfig = cfg

	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel(cfg),
	}))
	slog.SetDefault(logger)

	if used := loader.GetConfigFileUsed(); used != "" {
		slog.Debug("Loaded configuration", "file", used)
	}
	return nil
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.Verbose {
		return slog.LevelDebug
	}
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printVersion(w io.Writer) {
	info := version.Info()
	_, _ = fmt.Fprintf(w, "eastocr version %s\n", info.Version)
	_, _ = fmt.Fprintf(w, "Commit: %s\n", info.GitCommit)
	_, _ = fmt.Fprintf(w, "Built: %s (%s)\n", info.BuildDate, info.GoVersion)
}

// GetConfig returns the configuration loaded for the running command.
func GetConfig() *config.Config {
	if globalConfig == nil {
		cfg := config.DefaultConfig()
		return &cfg
	}
	return globalConfig
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}

// buildPipeline converts cfg and builds the pipeline.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	pcfg, err := cfg.ToPipelineConfig()
	if err != nil {
		return nil, err
	}
	p, err := newPipeline(pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	return p, nil
}
