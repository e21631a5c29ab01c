package dispatch

import (
	"context"
	"errors"

	"github.com/diffuserd/diffuserd/internal/store"
)

type fakeUploader struct {
	uploads   []store.UploadParams
	failAfter int // fail the (failAfter+1)th call; -1 never fails
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{failAfter: -1}
}

func (f *fakeUploader) Upload(ctx context.Context, params store.UploadParams) error {
	if f.failAfter >= 0 && len(f.uploads) >= f.failAfter {
		return errors.New("s3 is having a day")
	}
	f.uploads = append(f.uploads, params)
	return nil
}
