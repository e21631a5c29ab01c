package model

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/diffuserd/diffuserd/internal/pipeline"
)

type fakePipeline struct {
	mu        sync.Mutex
	loadCalls int
	loadSpecs []pipeline.LoadSpec
	synths    []pipeline.Params
	loadErr   error
	synthErr  error
	loadDelay time.Duration
}

func (f *fakePipeline) Load(ctx context.Context, spec pipeline.LoadSpec) error {
	if f.loadDelay > 0 {
		time.Sleep(f.loadDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	f.loadSpecs = append(f.loadSpecs, spec)
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

func (f *fakePipeline) stats() (int, []pipeline.Params) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadCalls, append([]pipeline.Params(nil), f.synths...)
}
