package serve

import (
	"context"
	"image"
	"sync"
	"testing"

	"github.com/diffuserd/diffuserd/internal/config"
	"github.com/diffuserd/diffuserd/internal/device"
	"github.com/diffuserd/diffuserd/internal/dispatch"
	"github.com/diffuserd/diffuserd/internal/generate"
	"github.com/diffuserd/diffuserd/internal/handler"
	"github.com/diffuserd/diffuserd/internal/model"
	"github.com/diffuserd/diffuserd/internal/pipeline"
	"github.com/diffuserd/diffuserd/internal/store"
	"github.com/samber/do"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	mu     sync.Mutex
	synths []pipeline.Params
}

func (f *fakePipeline) Load(ctx context.Context, spec pipeline.LoadSpec) error { return nil }

func (f *fakePipeline) Synthesize(ctx context.Context, params pipeline.Params) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synths = append(f.synths, params)
	return image.NewRGBA(image.Rect(0, 0, params.Width, params.Height)), nil
}

type fakeUploader struct{}

func (fakeUploader) Upload(ctx context.Context, params store.UploadParams) error { return nil }

func newTestServer(t *testing.T) (*Server, *fakePipeline) {
	t.Helper()

	pipe := &fakePipeline{}
	injector := do.New()
	do.ProvideValue[*config.Config](injector, &config.Config{
		ModelID:      "stabilityai/stable-diffusion-xl-base-1.0",
		MaxWidth:     1024,
		MaxHeight:    1024,
		MaxSteps:     50,
		DefaultSteps: 20,
		Mode:         config.ModeSync,
		Addr:         ":0",
	})
	do.ProvideValue[pipeline.Pipeline](injector, pipe)
	do.ProvideValue[store.Uploader](injector, fakeUploader{})
	do.ProvideValue[device.Selector](injector, device.Static{Device: device.Device{Kind: device.KindCPU}})
	do.ProvideNamedValue[string](injector, "hf_token", "")
	do.Provide[*model.Loader](injector, model.NewLoader)
	do.Provide[*generate.Orchestrator](injector, generate.NewOrchestrator)
	do.Provide[*dispatch.Dispatcher](injector, dispatch.NewDispatcher)
	do.Provide[*handler.Handler](injector, handler.NewHandler)

	srv, err := NewServer(injector)
	require.NoError(t, err)
	return srv, pipe
}
