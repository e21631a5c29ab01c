package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/diffuserd/diffuserd/internal/inject"
	"github.com/diffuserd/diffuserd/internal/log"
	"github.com/diffuserd/diffuserd/internal/serve"
	"github.com/joho/godotenv"
	"github.com/samber/do"
)

func main() {
	_ = godotenv.Load()

	ctx := log.NewContext(context.Background(), log.New(os.Stdout))
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	injector := inject.Setup(ctx)
	server := do.MustInvoke[*serve.Server](injector)

	err := server.ListenAndServe(ctx)
	_ = injector.Shutdown()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.FromContextOrDiscard(ctx).Error("server exited", "error", err)
		os.Exit(1)
	}
}
