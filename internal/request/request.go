// Package request defines the inference request payload and the
// normalization that turns its loosely typed parameters into a bounded,
// well-typed set. Out-of-range values are clamped, never rejected; only a
// missing, empty, or overlong prompt fails a request.
package request

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/diffuserd/diffuserd/internal/errdefs"
	"github.com/samber/lo"
)

// MaxPromptChars bounds the prompt length in characters, not bytes.
const MaxPromptChars = 1000

// Request is the raw JSON payload. The prompt may arrive under either
// "inputs" or "prompt"; "inputs" wins when both are present.
type Request struct {
	Inputs     string    `json:"inputs"`
	Prompt     string    `json:"prompt"`
	Parameters RawParams `json:"parameters"`
}

// RawParams carries the optional generation fields as the client sent them.
// Seed is deliberately untyped: anything that is not a non-negative integer
// is discarded during normalization rather than failing the request.
type RawParams struct {
	Steps          *int     `json:"num_inference_steps"`
	GuidanceScale  *float64 `json:"guidance_scale"`
	Width          *int     `json:"width"`
	Height         *int     `json:"height"`
	Seed           any      `json:"seed"`
	NegativePrompt string   `json:"negative_prompt"`
}

// Params is the normalized parameter set. Every numeric field is within its
// configured bound; NumImages is pinned to one.
type Params struct {
	Steps          int     `json:"num_inference_steps"`
	GuidanceScale  float64 `json:"guidance_scale"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Seed           *int64  `json:"seed"`
	NegativePrompt string  `json:"negative_prompt"`
	NumImages      int     `json:"num_images_per_prompt"`
}

type Limits struct {
	MaxWidth     int
	MaxHeight    int
	MaxSteps     int
	DefaultSteps int
}

// Normalize validates the prompt and clamps every generation parameter into
// its bound. It is a pure function of the request and the limits.
//
// Dimensions are clamped first and floored to a multiple of 64 second, so a
// max bound that is itself not a multiple of 64 can yield a value below the
// 256 floor (e.g. MaxWidth=250 clamps to 250 and floors to 192). That
// ordering matches the deployed behavior and is kept on purpose.
func Normalize(req Request, limits Limits) (string, Params, error) {
	prompt := req.Inputs
	if prompt == "" {
		prompt = req.Prompt
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", Params{}, errdefs.InvalidInput("missing or empty 'inputs' or 'prompt' field")
	}
	if utf8.RuneCountInString(prompt) > MaxPromptChars {
		return "", Params{}, errdefs.InvalidInput("prompt too long (max %d characters)", MaxPromptChars)
	}

	raw := req.Parameters
	params := Params{
		Steps:          lo.Clamp(lo.FromPtrOr(raw.Steps, limits.DefaultSteps), 1, limits.MaxSteps),
		GuidanceScale:  lo.Clamp(lo.FromPtrOr(raw.GuidanceScale, 7.5), 1.0, 20.0),
		Width:          floor64(lo.Clamp(lo.FromPtrOr(raw.Width, 1024), 256, limits.MaxWidth)),
		Height:         floor64(lo.Clamp(lo.FromPtrOr(raw.Height, 1024), 256, limits.MaxHeight)),
		Seed:           normalizeSeed(raw.Seed),
		NegativePrompt: raw.NegativePrompt,
		NumImages:      1,
	}
	return prompt, params, nil
}

func floor64(v int) int {
	return (v / 64) * 64
}

// maxExactSeed is the largest integer a float64 carries exactly (2^53).
// JSON numbers above it have already lost precision, and anything near
// int64 range would overflow the conversion below, so they are discarded
// like any other invalid seed.
const maxExactSeed = 1 << 53

// normalizeSeed accepts only a non-negative integer. JSON numbers decode as
// float64, so integral floats are allowed; everything else resets the seed
// to unset.
func normalizeSeed(v any) *int64 {
	switch s := v.(type) {
	case float64:
		if s >= 0 && s <= maxExactSeed && s == math.Trunc(s) {
			return lo.ToPtr(int64(s))
		}
	case int:
		if s >= 0 {
			return lo.ToPtr(int64(s))
		}
	case int64:
		if s >= 0 {
			return lo.ToPtr(s)
		}
	}
	return nil
}
