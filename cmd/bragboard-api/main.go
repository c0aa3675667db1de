package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"bragboard/server/board/app"
	cmnenv "bragboard/server/common/env"
	commonlog "bragboard/server/common/log"
)

func main() {
	if err := cmnenv.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	commonlog.ConfigureFromEnv()
	cfg := app.LoadConfig()
	server, err := app.NewServer(cfg)
	if err != nil {
		log.Fatalf("initialize server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		commonlog.Infof("event=startup action=listen status=ok port=%s env=%s", cfg.Port, cfg.Env)
		if err := server.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("run http server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		commonlog.Warnf("event=shutdown action=http status=failed error=%v", err)
		return
	}
	commonlog.Infof("event=shutdown action=http status=ok")
}
