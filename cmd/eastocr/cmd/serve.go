package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/eastocr/internal/server"
	"github.com/MeKo-Tech/eastocr/internal/version"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for OCR API",
	Long: `Start an HTTP server that provides REST and WebSocket endpoints for OCR.

The server provides the following endpoints:
  POST /ocr       - Recognise an uploaded image (form fields: image, detect, lang, overlay, format)
  GET  /ws/ocr    - WebSocket, streams each region as it is recognised
  GET  /languages - List available and loaded OCR languages
  GET  /health    - Health check with memory and pipeline info
  GET  /metrics   - Prometheus metrics

Examples:
  eastocr serve
  eastocr serve --port 8080
  eastocr serve --host 0.0.0.0 --port 3000 --lang eng+deu`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	f := serveCmd.Flags()
	f.StringP("host", "H", "localhost", "server host")
	f.IntP("port", "p", 8080, "server port")
	f.String("cors-origin", "*", "CORS allowed origins")
	f.Int("max-upload-size", 20, "maximum upload size in MB")
	f.Int("timeout", 30, "request timeout in seconds")
	f.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	f.String("overlay-color", "#00FF00", "overlay box color (hex)")

	bindConfigFlags(serveCmd, mergeKeys(addDetectorFlags(serveCmd), addOCRFlags(serveCmd), map[string]string{
		"server.host":             "host",
		"server.port":             "port",
		"server.cors_origin":      "cors-origin",
		"server.max_upload_mb":    "max-upload-size",
		"server.timeout_sec":      "timeout",
		"server.shutdown_timeout": "shutdown-timeout",
		"output.overlay_color":    "overlay-color",
	}))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()
	sc := cfg.Server

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	ocrServer := server.NewServerWithPipeline(server.Config{
		Host:        sc.Host,
		Port:        sc.Port,
		CORSOrigin:  sc.CORSOrigin,
		MaxUploadMB: int64(sc.MaxUploadMB),
		TimeoutSec:  sc.TimeoutSec,
	}, p)

	mux := http.NewServeMux()
	ocrServer.SetupRoutes(mux)

	// WriteTimeout stays unset so WebSocket streams are not cut off.
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", sc.Host, sc.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(sc.TimeoutSec) * time.Second,
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go func() {
		slog.Info("Starting OCR server", "host", sc.Host, "port", sc.Port, "language", cfg.OCR.Language, "build", version.Info())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", sc.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(sc.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server shutdown completed")
	}

	if err := ocrServer.Close(); err != nil {
		slog.Error("Server cleanup error", "error", err)
	}

	slog.Info("Graceful shutdown completed")
	return nil
}
