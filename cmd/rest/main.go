package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"ai-data-analyst-be/internal/bootstrap"
	"ai-data-analyst-be/internal/config"
	"ai-data-analyst-be/internal/server"
	"ai-data-analyst-be/internal/tracer"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Tracing (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.App.OtelEnabled)

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	// 4. Initialize Server
	srv := server.New(cfg, container)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// 5. Background Services
	g.Go(func() error {
		log.Println("Background: Starting transcript consumer...")
		return container.ConsumerService.Consume(gctx)
	})
	if container.ActivityLogService != nil {
		g.Go(func() error {
			// NATS being down must not take the API with it.
			if err := container.ActivityLogService.Start(gctx); err != nil {
				log.Printf("[WARN] Activity log disabled: %v", err)
			}
			return nil
		})
	}

	// 6. Run Server
	g.Go(srv.Run)

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		container.Close()
		if terr := shutdownTracer(shutdownCtx); terr != nil {
			log.Printf("[WARN] Tracer shutdown: %v", terr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
