// Package generate drives a single synthesis call and assembles the result
// metadata. It never retries: synthesis is expensive and a blind retry
// doubles cost whether the failure was transient or not.
package generate

import (
	"context"
	"image"
	"math"
	"time"
	"unicode/utf8"

	"github.com/diffuserd/diffuserd/internal/errdefs"
	"github.com/diffuserd/diffuserd/internal/log"
	"github.com/diffuserd/diffuserd/internal/model"
	"github.com/diffuserd/diffuserd/internal/pipeline"
	"github.com/diffuserd/diffuserd/internal/request"
	"github.com/samber/do"
)

type Metadata struct {
	Prompt                string         `json:"prompt"`
	Parameters            request.Params `json:"parameters"`
	GenerationTimeSeconds float64        `json:"generation_time_seconds"`
	ModelID               string         `json:"model_id"`
	Device                string         `json:"device"`
	Timestamp             time.Time      `json:"timestamp"`
}

// Result is owned by the call that produced it until handed to the
// dispatcher.
type Result struct {
	Image    image.Image
	Metadata Metadata
}

type Orchestrator struct {
	pipe pipeline.Pipeline
}

func NewOrchestrator(i *do.Injector) (*Orchestrator, error) {
	return &Orchestrator{pipe: do.MustInvoke[pipeline.Pipeline](i)}, nil
}

// Generate runs one synthesis with the normalized parameters. A set seed
// makes the call reproducible; an unset seed leaves sampling
// non-deterministic.
func (o *Orchestrator) Generate(ctx context.Context, prompt string, params request.Params, snap model.Snapshot) (*Result, error) {
	logger := log.FromContextOrDiscard(ctx).WithGroup("generate").With("prompt", truncate(prompt, 100))
	if params.Seed != nil {
		logger = logger.With("seed", *params.Seed)
	}
	logger.Info("generating image")
	start := time.Now()

	img, err := o.pipe.Synthesize(ctx, toPipelineParams(prompt, params))
	if err != nil {
		logger.Error("error generating image", "error", err)
		return nil, errdefs.Generation(err, "synthesizing image")
	}

	elapsed := math.Round(time.Since(start).Seconds()*100) / 100
	logger.Info("image generated successfully", "seconds", elapsed)

	return &Result{
		Image: img,
		Metadata: Metadata{
			Prompt:                prompt,
			Parameters:            params,
			GenerationTimeSeconds: elapsed,
			ModelID:               snap.ModelID,
			Device:                snap.Device.Kind,
			Timestamp:             time.Now().UTC(),
		},
	}, nil
}

func toPipelineParams(prompt string, p request.Params) pipeline.Params {
	// An empty negative prompt stays empty here and is omitted on the wire;
	// the worker must never see negative_prompt: "".
	return pipeline.Params{
		Prompt:         prompt,
		NegativePrompt: p.NegativePrompt,
		Steps:          p.Steps,
		GuidanceScale:  p.GuidanceScale,
		Width:          p.Width,
		Height:         p.Height,
		Seed:           p.Seed,
		NumImages:      p.NumImages,
	}
}

// truncate shortens a prompt for log fields, cutting on a rune boundary so
// the field stays valid UTF-8.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
