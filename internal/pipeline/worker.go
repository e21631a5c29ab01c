package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"

	"github.com/diffuserd/diffuserd/internal/config"
	"github.com/diffuserd/diffuserd/internal/log"
	"github.com/samber/do"
)

// WorkerClient talks to the in-container diffusion worker over HTTP. The
// worker exposes POST /load and POST /generate; /generate answers with raw
// PNG bytes.
type WorkerClient struct {
	Client   *http.Client
	Endpoint string
}

func NewWorkerClient(i *do.Injector) (Pipeline, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &WorkerClient{
		Client:   do.MustInvoke[*http.Client](i),
		Endpoint: cfg.RuntimeEndpoint,
	}, nil
}

func (c *WorkerClient) Load(ctx context.Context, spec LoadSpec) error {
	logger := log.FromContextOrDiscard(ctx).WithGroup("worker").With(
		"model_id", spec.ModelID,
		"device", spec.Device,
	)
	logger.Info("loading pipeline on worker")

	resp, err := c.post(ctx, "/load", spec)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("worker load failed: %s: %s", resp.Status, snippet(resp.Body))
	}
	logger.Info("pipeline loaded on worker")
	return nil
}

func (c *WorkerClient) Synthesize(ctx context.Context, params Params) (image.Image, error) {
	logger := log.FromContextOrDiscard(ctx).WithGroup("worker").With(
		"steps", params.Steps,
		"width", params.Width,
		"height", params.Height,
	)
	logger.Info("requesting synthesis from worker")

	resp, err := c.post(ctx, "/generate", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("worker synthesis failed: %s: %s", resp.Status, snippet(resp.Body))
	}

	img, err := png.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding worker image: %w", err)
	}
	logger.Info("received image from worker", "bounds", img.Bounds().String())
	return img, nil
}

func (c *WorkerClient) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.Client.Do(req)
}

func snippet(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(bytes.TrimSpace(data))
}
