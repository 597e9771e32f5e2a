package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dxbintel/propsignal/internal/api"
	"github.com/dxbintel/propsignal/internal/api/handlers"
	"github.com/dxbintel/propsignal/internal/scheduler"
	"github.com/dxbintel/propsignal/internal/scheduler/jobs"
)

// serveCmd starts the API server and the scheduled pipeline.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and scheduler",
	Long: `Starts the REST API server and the cron scheduler running the signal
pipeline for every active org.

Endpoints:
  GET  /health
  GET  /api/signals
  POST /api/signals/{id}/acknowledge
  POST /api/signals/{id}/dismiss
  GET  /api/targets
  GET  /api/notifications
  POST /api/pipeline/run
  GET  /api/pipeline/jobs

Example:
  go run ./cmd/propsignal serve
  go run ./cmd/propsignal serve --port 8091 --no-scheduler`,
	RunE: runServe,
}

var (
	servePort   string
	noScheduler bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "override API server port")
	serveCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve the API without the cron scheduler")
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer d.close()

	if servePort != "" {
		d.cfg.Port = servePort
	}

	var sched *scheduler.Scheduler
	if !noScheduler {
		sched = scheduler.New(d.log)
		job := jobs.NewPipelineJob(d.orchestrator, d.orgs, d.cfg.Pipeline.Schedule, d.log)
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("register pipeline job: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	signalHandler := handlers.NewSignalHandler(d.signals, d.targets, d.log)
	pipelineHandler := handlers.NewPipelineHandler(d.orchestrator, sched, d.log)
	notificationHandler := handlers.NewNotificationHandler(d.notifications, d.log)

	router := api.NewRouter(signalHandler, pipelineHandler, notificationHandler, d.log)
	server := api.New(d.cfg, d.log, router)

	go func() {
		if err := server.Start(); err != nil {
			d.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	d.log.Info("Server started")
	fmt.Printf("Server running on http://localhost:%s\n", d.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	d.log.Info("Server stopped")
	return nil
}
