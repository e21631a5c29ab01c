package store

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/diffuserd/diffuserd/internal/log"
	"github.com/samber/do"
)

type S3Uploader struct {
	Client *s3.Client
}

func NewS3Uploader(i *do.Injector) (Uploader, error) {
	return &S3Uploader{Client: do.MustInvoke[*s3.Client](i)}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, params UploadParams) error {
	logger := log.FromContextOrDiscard(ctx).WithGroup("s3").With(
		"bucket", params.Bucket,
		"key", params.Key,
		"content-type", params.ContentType,
	)
	logger.Info("uploading to s3")

	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(params.Bucket),
		Key:         aws.String(params.Key),
		Body:        bytes.NewReader(params.Data),
		ContentType: aws.String(params.ContentType),
		Metadata:    params.Metadata,
	})
	return err
}
