package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-match/internal/config"
	"github.com/kozaktomas/face-match/internal/pipeline"
	"github.com/kozaktomas/face-match/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Match web server.
The server exposes single-image matching, asynchronous bulk recognition
with progress events, and gallery management over HTTP.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	be, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	count, err := be.gallery.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to read gallery: %w", err)
	}
	fmt.Printf("Gallery loaded with %d identities (model %s, dim %d, threshold %.2f)\n",
		count, cfg.Embedding.Model, cfg.Embedding.Dim, cfg.Match.Threshold)

	single := be.newSingle(cfg, 0)
	jobs := pipeline.NewJobManager()
	bulk := pipeline.NewBulk(single, be.results, jobs, cfg.Worker.PoolSize)

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, host, port, web.Deps{
		Provider: be.provider,
		Gallery:  be.gallery,
		Single:   single,
		Bulk:     bulk,
		Jobs:     jobs,
		Results:  be.results,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Match API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
