// Package model owns the one-shot lifecycle of the generation capability.
// Loading dominates the latency of the whole service, so it happens exactly
// once per process no matter how many requests arrive before readiness.
package model

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/diffuserd/diffuserd/internal/config"
	"github.com/diffuserd/diffuserd/internal/device"
	"github.com/diffuserd/diffuserd/internal/errdefs"
	"github.com/diffuserd/diffuserd/internal/log"
	"github.com/diffuserd/diffuserd/internal/pipeline"
	"github.com/samber/do"
	"golang.org/x/sync/singleflight"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
)

// Snapshot is a read-only view of the loader state.
type Snapshot struct {
	State   State
	ModelID string
	Device  device.Device
}

type Loader struct {
	pipe     pipeline.Pipeline
	selector device.Selector
	cfg      *config.Config
	token    string

	group singleflight.Group
	mu    sync.Mutex
	snap  Snapshot
}

func NewLoader(i *do.Injector) (*Loader, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &Loader{
		pipe:     do.MustInvoke[pipeline.Pipeline](i),
		selector: do.MustInvoke[device.Selector](i),
		cfg:      cfg,
		token:    do.MustInvokeNamed[string](i, "hf_token"),
		snap:     Snapshot{State: StateUninitialized, ModelID: cfg.ModelID},
	}, nil
}

func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// EnsureReady loads the model on first call and is a no-op once ready.
// Concurrent first callers share a single load; none of them sees a
// partially constructed model. A failed load is not retried here, but a
// later call may attempt the load again.
func (l *Loader) EnsureReady(ctx context.Context) error {
	if l.Snapshot().State == StateReady {
		return nil
	}
	_, err, _ := l.group.Do("load", func() (any, error) {
		// A caller queued behind a finished load lands here after the
		// state already flipped.
		if l.Snapshot().State == StateReady {
			return nil, nil
		}
		return nil, l.load(ctx)
	})
	return err
}

func (l *Loader) load(ctx context.Context) error {
	logger := log.FromContextOrDiscard(ctx).WithGroup("model").With("model_id", l.cfg.ModelID)
	logger.Info("loading diffusion pipeline")
	start := time.Now()

	l.transition(func(s *Snapshot) { s.State = StateLoading })

	dev := l.selector.Select(ctx)
	l.transition(func(s *Snapshot) { s.Device = dev })

	spec := pipeline.LoadSpec{
		ModelID:   l.cfg.ModelID,
		CacheDir:  l.cfg.ModelCacheRoot,
		Device:    dev.Kind,
		AuthToken: l.token,
	}
	if err := l.pipe.Load(ctx, spec); err != nil {
		l.transition(func(s *Snapshot) { s.State = StateUninitialized })
		logger.Error("failed to load model", "device", dev.Kind, "error", err)
		return errdefs.ModelLoad(err, "loading pipeline")
	}

	// Throwaway minimal-cost synthesis so lazy compilation and cache
	// population happen before real traffic.
	logger.Info("warming up pipeline")
	if _, err := l.pipe.Synthesize(ctx, warmupParams()); err != nil {
		l.transition(func(s *Snapshot) { s.State = StateUninitialized })
		logger.Error("pipeline warm-up failed", "device", dev.Kind, "error", err)
		return errdefs.ModelLoad(err, "warming up pipeline")
	}

	l.transition(func(s *Snapshot) { s.State = StateReady })
	seconds := math.Round(time.Since(start).Seconds()*100) / 100
	logger.Info("model loaded successfully", "device", dev.Kind, "seconds", seconds)
	return nil
}

func (l *Loader) transition(fn func(*Snapshot)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.snap)
}

func warmupParams() pipeline.Params {
	return pipeline.Params{
		Prompt:        "a simple test image",
		Steps:         1,
		GuidanceScale: 1.0,
		Width:         256,
		Height:        256,
		NumImages:     1,
	}
}
