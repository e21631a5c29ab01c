package handler

import (
	"context"

	"github.com/diffuserd/diffuserd/internal/config"
	"github.com/diffuserd/diffuserd/internal/dispatch"
	"github.com/diffuserd/diffuserd/internal/generate"
	"github.com/diffuserd/diffuserd/internal/log"
	"github.com/diffuserd/diffuserd/internal/model"
	"github.com/diffuserd/diffuserd/internal/request"
	"github.com/samber/do"
)

// Handler composes one request lifecycle: ensure the model is ready,
// normalize the input, generate, dispatch. Errors pass through untranslated
// so the serving layer sees the original taxonomy.
type Handler struct {
	loader       *model.Loader
	orchestrator *generate.Orchestrator
	dispatcher   *dispatch.Dispatcher
	limits       request.Limits
}

func NewHandler(i *do.Injector) (*Handler, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &Handler{
		loader:       do.MustInvoke[*model.Loader](i),
		orchestrator: do.MustInvoke[*generate.Orchestrator](i),
		dispatcher:   do.MustInvoke[*dispatch.Dispatcher](i),
		limits: request.Limits{
			MaxWidth:     cfg.MaxWidth,
			MaxHeight:    cfg.MaxHeight,
			MaxSteps:     cfg.MaxSteps,
			DefaultSteps: cfg.DefaultSteps,
		},
	}, nil
}

func (h *Handler) Handle(ctx context.Context, req request.Request) (*dispatch.Artifact, error) {
	logger := log.FromContextOrDiscard(ctx).WithGroup("handler")

	if err := h.loader.EnsureReady(ctx); err != nil {
		return nil, err
	}

	prompt, params, err := request.Normalize(req, h.limits)
	if err != nil {
		logger.Error("rejected request", "error", err)
		return nil, err
	}
	logger.Info("validated parameters", "params", params)

	result, err := h.orchestrator.Generate(ctx, prompt, params, h.loader.Snapshot())
	if err != nil {
		return nil, err
	}

	return h.dispatcher.Dispatch(ctx, result)
}
