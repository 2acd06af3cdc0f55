package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/nrs-views/pkg/nodeapi"
	"github.com/Sternrassler/nrs-views/pkg/view"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type serveCmd struct{}

func (c *serveCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rendered views over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context(), loadNodeConfig(), viper.GetString("listen"))
		},
	}

	cmd.Flags().String("listen", ":8080", "Address to listen and serve on")
	if err := viper.BindPFlag("listen", cmd.Flags().Lookup("listen")); err != nil {
		panic(err)
	}
	return cmd
}

func (c *serveCmd) Run(ctx context.Context, cfg nodeConfig, addr string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nodeClient, redisClient, err := newNodeClient(cfg)
	if err != nil {
		return err
	}
	defer nodeClient.Close()
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	log.Info().Str("redis_addr", cfg.RedisAddr).Msg("Connected to Redis")

	renderer, err := view.NewRenderer()
	if err != nil {
		return err
	}

	srv := &server{
		api:       nodeapi.New(nodeClient),
		renderer:  renderer,
		wallet:    viewerFor(cfg.Account),
		publicKey: cfg.PublicKey,
		perPage:   cfg.ItemsPerPage,
		ready: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
		invalidate: nodeClient.Invalidate,
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("node_url", cfg.NodeURL).
			Str("user_agent", cfg.UserAgent).
			Msg("Starting nrs-views server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
