// Package dispatch packages a generation result for the configured output
// mode: inline base64 in sync deployments, object storage URIs in async
// deployments.
package dispatch

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/diffuserd/diffuserd/internal/config"
	"github.com/diffuserd/diffuserd/internal/errdefs"
	"github.com/diffuserd/diffuserd/internal/generate"
	"github.com/diffuserd/diffuserd/internal/imgutil"
	"github.com/diffuserd/diffuserd/internal/log"
	"github.com/diffuserd/diffuserd/internal/store"
	"github.com/samber/do"
)

const (
	imageObjectName    = "generated_image.png"
	metadataObjectName = "metadata.json"
)

// Artifact is the response body. Sync responses carry GeneratedImage; async
// responses carry the two URIs. Both carry the metadata.
type Artifact struct {
	GeneratedImage string            `json:"generated_image,omitempty"`
	ImageURI       string            `json:"image_s3_uri,omitempty"`
	MetadataURI    string            `json:"metadata_s3_uri,omitempty"`
	Metadata       generate.Metadata `json:"metadata"`
}

type Dispatcher struct {
	mode     config.Mode
	location string
	uploader store.Uploader
}

func NewDispatcher(i *do.Injector) (*Dispatcher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &Dispatcher{
		mode:     cfg.Mode,
		location: cfg.OutputLocation,
		uploader: do.MustInvoke[store.Uploader](i),
	}, nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, res *generate.Result) (*Artifact, error) {
	if d.mode == config.ModeAsync {
		loc, ok := store.ParseLocation(d.location)
		if ok {
			return d.persist(ctx, loc, res)
		}
		// An async deployment without a usable output location degrades to
		// the inline response shape instead of failing the request. Kept
		// from the previous implementation; see DESIGN.md.
		log.FromContextOrDiscard(ctx).WithGroup("dispatch").Warn(
			"async mode without a valid s3 output location, returning inline response",
			"location", d.location,
		)
	}
	return d.inline(res)
}

func (d *Dispatcher) inline(res *generate.Result) (*Artifact, error) {
	encoded, err := imgutil.EncodeBase64PNG(res.Image)
	if err != nil {
		return nil, errdefs.Generation(err, "encoding image")
	}
	return &Artifact{GeneratedImage: encoded, Metadata: res.Metadata}, nil
}

// persist writes the image and its metadata under the output prefix. The
// writes are sequential and blocking; a failure surfaces as a storage error
// and no artifact is returned, so the caller never sees partial URIs.
func (d *Dispatcher) persist(ctx context.Context, loc store.Location, res *generate.Result) (*Artifact, error) {
	logger := log.FromContextOrDiscard(ctx).WithGroup("dispatch").With("bucket", loc.Bucket, "prefix", loc.Prefix)

	data, err := imgutil.EncodeOptimizedPNG(res.Image)
	if err != nil {
		return nil, errdefs.Storage(err, "encoding image")
	}

	imageKey := loc.Key(imageObjectName)
	err = d.uploader.Upload(ctx, store.UploadParams{
		Bucket:      loc.Bucket,
		Key:         imageKey,
		Data:        data,
		ContentType: "image/png",
		Metadata: map[string]string{
			"generated-by": "stable-diffusion-xl",
			"timestamp":    strconv.FormatInt(time.Now().Unix(), 10),
		},
	})
	if err != nil {
		logger.Error("failed to save image to s3", "key", imageKey, "error", err)
		return nil, errdefs.Storage(err, "uploading generated image")
	}

	metadataJSON, err := json.MarshalIndent(res.Metadata, "", "  ")
	if err != nil {
		return nil, errdefs.Storage(err, "encoding metadata")
	}

	metadataKey := loc.Key(metadataObjectName)
	err = d.uploader.Upload(ctx, store.UploadParams{
		Bucket:      loc.Bucket,
		Key:         metadataKey,
		Data:        metadataJSON,
		ContentType: "application/json",
	})
	if err != nil {
		logger.Error("failed to save metadata to s3", "key", metadataKey, "error", err)
		return nil, errdefs.Storage(err, "uploading metadata")
	}

	logger.Info("artifacts saved to s3", "image_key", imageKey, "metadata_key", metadataKey)
	return &Artifact{
		ImageURI:    loc.URI(imageKey),
		MetadataURI: loc.URI(metadataKey),
		Metadata:    res.Metadata,
	}, nil
}
