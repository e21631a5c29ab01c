// genimage exercises the full inference path from the command line against
// a running diffusion worker, writing the generated image to a local file.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/diffuserd/diffuserd/internal/dispatch"
	"github.com/diffuserd/diffuserd/internal/handler"
	"github.com/diffuserd/diffuserd/internal/inject"
	"github.com/diffuserd/diffuserd/internal/log"
	"github.com/diffuserd/diffuserd/internal/request"
	"github.com/diffuserd/diffuserd/internal/store"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type options struct {
	prompt         string
	negativePrompt string
	steps          int
	width          int
	height         int
	seed           int64
	output         string
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:          "genimage",
		Short:        "Generate a single image through the inference handler",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "text prompt for image generation")
	cmd.Flags().StringVar(&opts.negativePrompt, "negative-prompt", "", "negative prompt")
	cmd.Flags().IntVar(&opts.steps, "steps", 20, "number of inference steps")
	cmd.Flags().IntVar(&opts.width, "width", 1024, "image width")
	cmd.Flags().IntVar(&opts.height, "height", 1024, "image height")
	cmd.Flags().Int64Var(&opts.seed, "seed", -1, "random seed (negative means unset)")
	cmd.Flags().StringVar(&opts.output, "output", "test_output.png", "output file path")
	_ = cmd.MarkFlagRequired("prompt")

	_ = godotenv.Load()
	ctx := log.NewContext(context.Background(), log.New(os.Stderr))

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	injector := inject.Setup(ctx)
	defer func() { _ = injector.Shutdown() }()

	req := request.Request{
		Inputs: opts.prompt,
		Parameters: request.RawParams{
			Steps:          lo.ToPtr(opts.steps),
			Width:          lo.ToPtr(opts.width),
			Height:         lo.ToPtr(opts.height),
			NegativePrompt: opts.negativePrompt,
		},
	}
	if opts.seed >= 0 {
		req.Parameters.Seed = opts.seed
	}

	artifact, err := do.MustInvoke[*handler.Handler](injector).Handle(ctx, req)
	if err != nil {
		return err
	}

	if err := writeImage(ctx, artifact, opts.output); err != nil {
		return err
	}

	fmt.Printf("generation completed in %.2f seconds\n", artifact.Metadata.GenerationTimeSeconds)
	return nil
}

func writeImage(ctx context.Context, artifact *dispatch.Artifact, output string) error {
	if artifact.GeneratedImage == "" {
		fmt.Printf("image saved to %s\n", artifact.ImageURI)
		return nil
	}

	data, err := base64.StdEncoding.DecodeString(artifact.GeneratedImage)
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}

	uploader := &store.FileUploader{}
	if err := uploader.Upload(ctx, store.UploadParams{Key: output, Data: data, ContentType: "image/png"}); err != nil {
		return err
	}
	fmt.Printf("image saved to %s\n", output)
	return nil
}
