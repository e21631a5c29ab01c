// Package pipeline is the boundary to the synthesis capability: the
// diffusion worker that actually holds the model. The rest of the service
// only sees the Pipeline interface.
package pipeline

import (
	"context"
	"image"
)

// Params are the sampling parameters for a single synthesis call. An empty
// NegativePrompt means "no negative prompt" and is never sent to the worker
// as an empty string; a nil Seed means non-deterministic sampling.
type Params struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Steps          int     `json:"num_inference_steps"`
	GuidanceScale  float64 `json:"guidance_scale"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Seed           *int64  `json:"seed,omitempty"`
	NumImages      int     `json:"num_images_per_prompt"`
}

// LoadSpec tells the worker which model to construct and where to place it.
type LoadSpec struct {
	ModelID   string `json:"model_id"`
	CacheDir  string `json:"cache_dir"`
	Device    string `json:"device"`
	AuthToken string `json:"auth_token,omitempty"`
}

type Pipeline interface {
	// Load constructs the model on the worker. Expensive; callers guard it
	// so it runs at most once per process.
	Load(context.Context, LoadSpec) error
	// Synthesize runs one generation to completion. There is no mid-flight
	// abort beyond context plumbing; the worker serializes calls on the
	// accelerator.
	Synthesize(context.Context, Params) (image.Image, error)
}
