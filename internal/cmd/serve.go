package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seqforge/prosol/internal/observability"
	"github.com/seqforge/prosol/internal/server"
	"github.com/seqforge/prosol/internal/server/handlers"
	"github.com/seqforge/prosol/pkg/executor"
	"github.com/seqforge/prosol/pkg/jobs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP job service",
	Long: `Start the prosol HTTP server. Jobs submitted over HTTP run on a
bounded worker pool; the process restores its view of prior jobs from the
data directory on startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := observability.CLILogger

		exec, err := executor.New(cfg.Pipeline.Dir)
		if err != nil {
			return err
		}
		if err := exec.Check(); err != nil {
			log.Warn("pipeline checkout not usable; prediction jobs will fail",
				zap.String("dir", cfg.Pipeline.Dir),
				zap.Error(err))
		}

		mgr, err := jobs.New(jobs.Config{
			DataDir:     cfg.Jobs.DataDir,
			Workers:     cfg.Jobs.Workers,
			QueueDepth:  cfg.Jobs.QueueDepth,
			ExecTimeout: cfg.Jobs.ExecTimeout,
			LaunchRate:  cfg.Jobs.LaunchRate,
		}, exec, log)
		if err != nil {
			return err
		}
		defer mgr.Close()

		h := handlers.New(mgr, log)
		srv := server.New(server.Options{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			IdleTimeout:     cfg.Server.IdleTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}, h, log)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
