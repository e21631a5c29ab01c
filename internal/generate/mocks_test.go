package generate

import (
	"context"
	"image"
	"math/rand"

	"github.com/diffuserd/diffuserd/internal/pipeline"
)

// fakePipeline renders a small bitmap whose pixels are a pure function of
// the seed, so reproducibility can be asserted without an accelerator.
type fakePipeline struct {
	synths   []pipeline.Params
	synthErr error
}

func (f *fakePipeline) Load(ctx context.Context, spec pipeline.LoadSpec) error { return nil }

func (f *fakePipeline) Synthesize(ctx context.Context, params pipeline.Params) (image.Image, error) {
	f.synths = append(f.synths, params)
	if f.synthErr != nil {
		return nil, f.synthErr
	}

	var source int64
	if params.Seed != nil {
		source = *params.Seed
	} else {
		source = rand.Int63()
	}
	rnd := rand.New(rand.NewSource(source))

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(rnd.Intn(256))
	}
	return img, nil
}
