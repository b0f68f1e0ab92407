package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"secureshield-assistant/internal/app"
	"secureshield-assistant/internal/config"
	"secureshield-assistant/internal/logger"
	"secureshield-assistant/internal/scraper"
	"secureshield-assistant/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	var flags config.Flags
	var buildOnStart bool

	root := &cobra.Command{
		Use:   "server",
		Short: "Serve the SecureShield assistant API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := flags.Load()
			if err != nil {
				return err
			}
			if cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			return run(cmd.Context(), cfg, log, buildOnStart)
		},
		SilenceUsage: true,
	}
	flags.Register(root)
	root.Flags().BoolVar(&buildOnStart, "build", false, "build the index at startup when no snapshot can be loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger, buildOnStart bool) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize", "err", err)
		return err
	}
	defer a.Close()

	loaded := a.Service.Load(ctx)
	srv := server.New(a.Service, a.Metrics, log, scraper.SampleDocuments())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, cfg.Server.Addr())
	})
	if !loaded && buildOnStart {
		g.Go(func() error {
			meta, err := a.Service.Build(ctx, "")
			if err != nil {
				// The API stays up; POST /api/index/build can retry.
				log.Error("startup index build failed", "err", err)
				return nil
			}
			a.Metrics.SetIndexChunks(meta.Count)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "err", err)
		return err
	}
	log.Info("server stopped")
	return nil
}
