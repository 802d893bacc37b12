package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/facility-checklists/internal/jobs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the digest job",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("http-port", 8080, "HTTP server port")
	serveCmd.Flags().String("upload-dir", "", "directory for execution photos (default: <data-dir>/uploads/checklist-photos)")
	serveCmd.Flags().String("digest-schedule", jobs.DefaultDigestSchedule, "cron schedule of the pending digest")
	serveCmd.Flags().String("public-url", "", "base URL printed in QR codes, e.g. https://checklists.example.com")

	bindFlag("http_port", serveCmd.Flags(), "http-port")
	bindFlag("upload_dir", serveCmd.Flags(), "upload-dir")
	bindFlag("digest_schedule", serveCmd.Flags(), "digest-schedule")
	bindFlag("public_url", serveCmd.Flags(), "public-url")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, logCloser, err := loadRuntime(os.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, time.Now)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := a.bootstrap(ctx, cfg.BootstrapAdminPassword, logger); err != nil {
		return err
	}

	digest, err := jobs.NewDigest(cfg.DigestSchedule, a.agenda, cfg.Location, logger)
	if err != nil {
		return err
	}
	if err := digest.Start(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("checklist API listening",
			"addr", server.Addr,
			"storage", cfg.StorageDriver,
			"timezone", cfg.Timezone,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	digest.Stop(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}
	return nil
}
