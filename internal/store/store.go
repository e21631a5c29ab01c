package store

import (
	"context"
	"os"
	"strings"

	"github.com/diffuserd/diffuserd/internal/log"
)

// Location is a parsed s3://bucket/prefix output location.
type Location struct {
	Bucket string
	Prefix string
}

// ParseLocation accepts only s3:// URIs with a bucket. The prefix may be
// empty.
func ParseLocation(s string) (Location, bool) {
	rest, ok := strings.CutPrefix(s, "s3://")
	if !ok {
		return Location{}, false
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, false
	}
	return Location{Bucket: bucket, Prefix: prefix}, true
}

// Key joins the prefix and an object name. An empty prefix yields a
// leading-slash key, matching what the deployed service has always written.
func (l Location) Key(name string) string {
	return l.Prefix + "/" + name
}

func (l Location) URI(key string) string {
	return "s3://" + l.Bucket + "/" + key
}

type UploadParams struct {
	Bucket      string
	Key         string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

type Uploader interface {
	Upload(context.Context, UploadParams) error
}

// FileUploader writes the object to the local filesystem instead; the
// manual-test CLI uses it to drop generated images next to the invocation.
type FileUploader struct{}

func (*FileUploader) Upload(ctx context.Context, params UploadParams) error {
	log.FromContextOrDiscard(ctx).WithGroup("file").Info("writing", "file", params.Key)
	return os.WriteFile(params.Key, params.Data, 0600)
}
