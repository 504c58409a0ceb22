package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wizline/internal/app"
	"wizline/internal/events"
	"wizline/internal/server"
)

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return withEnv(ctx, func(ctx context.Context, env *app.Env) error {
				e := env.Engine
				e.Bus = events.NewBus()
				handler, err := server.New(server.Config{
					Engine:   e,
					BasePath: basePath,
					Downloads: server.LinkConfig{
						Secret: env.Config.Downloads.SigningSecret,
						TTL:    env.Config.DownloadTTL(),
					},
					Webhooks: env.Config.Webhooks,
					Context:  ctx,
				})
				if err != nil {
					return err
				}
				if addr == "" {
					addr = env.Config.Addr()
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Wizline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from wizline.yml)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}
