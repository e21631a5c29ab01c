package handler

import (
	"context"
	"image"
	"sync"
	"testing"

	"github.com/diffuserd/diffuserd/internal/config"
	"github.com/diffuserd/diffuserd/internal/device"
	"github.com/diffuserd/diffuserd/internal/dispatch"
	"github.com/diffuserd/diffuserd/internal/generate"
	"github.com/diffuserd/diffuserd/internal/model"
	"github.com/diffuserd/diffuserd/internal/pipeline"
	"github.com/diffuserd/diffuserd/internal/store"
	"github.com/samber/do"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	mu       sync.Mutex
	loads    int
	synths   []pipeline.Params
	loadErr  error
	synthErr error
}

func (f *fakePipeline) Load(ctx context.Context, spec pipeline.LoadSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return f.loadErr
}

func (f *fakePipeline) Synthesize(ctx context.Context, params pipeline.Params) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synths = append(f.synths, params)
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	return image.NewRGBA(image.Rect(0, 0, params.Width, params.Height)), nil
}

// generations counts synthesis calls minus the warm-up.
func (f *fakePipeline) generations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.synths {
		if p.Prompt != "a simple test image" {
			n++
		}
	}
	return n
}

type fakeUploader struct {
	uploads []store.UploadParams
	err     error
}

func (f *fakeUploader) Upload(ctx context.Context, params store.UploadParams) error {
	if f.err != nil {
		return f.err
	}
	f.uploads = append(f.uploads, params)
	return nil
}

func newTestHandler(t *testing.T, cfg *config.Config, pipe pipeline.Pipeline, uploader store.Uploader) *Handler {
	t.Helper()

	injector := do.New()
	do.ProvideValue[*config.Config](injector, cfg)
	do.ProvideValue[pipeline.Pipeline](injector, pipe)
	do.ProvideValue[store.Uploader](injector, uploader)
	do.ProvideValue[device.Selector](injector, device.Static{Device: device.Device{Kind: device.KindCPU}})
	do.ProvideNamedValue[string](injector, "hf_token", "")
	do.Provide[*model.Loader](injector, model.NewLoader)
	do.Provide[*generate.Orchestrator](injector, generate.NewOrchestrator)
	do.Provide[*dispatch.Dispatcher](injector, dispatch.NewDispatcher)

	h, err := NewHandler(injector)
	require.NoError(t, err)
	return h
}

func syncConfig() *config.Config {
	return &config.Config{
		ModelID:      "stabilityai/stable-diffusion-xl-base-1.0",
		MaxWidth:     1024,
		MaxHeight:    1024,
		MaxSteps:     50,
		DefaultSteps: 20,
		Mode:         config.ModeSync,
	}
}
