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

	"github.com/abhisek/pdfquiz/internal/api"
	"github.com/abhisek/pdfquiz/internal/jobs"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long serve waits for requests and queued
// jobs after a signal.
const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			e.cfg.HTTPAddr = addr
		}
		if e.cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx := cmd.Context()
		sel, err := e.selector(ctx)
		if err != nil {
			return err
		}
		svc, err := e.ingester(ctx, sel)
		if err != nil {
			return err
		}
		blobs, err := e.blobs(ctx)
		if err != nil {
			return err
		}

		jobCtx, cancelJobs := context.WithCancel(context.Background())
		defer cancelJobs()
		queue := jobs.NewQueue(jobCtx, e.log)
		logged := logFinishedJobs(queue, e.log)

		srv := api.NewServer(api.Deps{
			Store:    e.store,
			Blobs:    blobs,
			Ingest:   svc,
			Queue:    queue,
			Selector: sel,
			Logger:   e.log,
		})
		server := &http.Server{
			Addr:              e.cfg.HTTPAddr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			e.log.Info("starting server", "addr", e.cfg.HTTPAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case err := <-errCh:
			return fmt.Errorf("serve: %w", err)
		case <-quit:
		}

		e.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			e.log.Error("server forced to shutdown", "error", err)
		}

		drained := make(chan struct{})
		go func() {
			queue.Close()
			close(drained)
		}()
		select {
		case <-drained:
		case <-shutdownCtx.Done():
			e.log.Warn("cancelling unfinished jobs")
			cancelJobs()
			<-drained
		}
		<-logged
		return nil
	},
}

// logFinishedJobs logs each job the queue publishes. The returned channel
// is closed once the queue is closed and every notification is logged.
func logFinishedJobs(queue *jobs.Queue, log *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for info := range queue.Done() {
			log.Info("job finished", "job", info.ID, "document", info.DocumentID, "kind", info.Kind,
				"status", info.Status, "warning", info.Warning)
		}
	}()
	return done
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides PDFQUIZ_HTTP_ADDR)")
}
