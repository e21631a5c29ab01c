package inject

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/diffuserd/diffuserd/internal/config"
	"github.com/diffuserd/diffuserd/internal/device"
	"github.com/diffuserd/diffuserd/internal/dispatch"
	"github.com/diffuserd/diffuserd/internal/generate"
	"github.com/diffuserd/diffuserd/internal/handler"
	"github.com/diffuserd/diffuserd/internal/log"
	"github.com/diffuserd/diffuserd/internal/model"
	"github.com/diffuserd/diffuserd/internal/param"
	"github.com/diffuserd/diffuserd/internal/pipeline"
	"github.com/diffuserd/diffuserd/internal/serve"
	"github.com/diffuserd/diffuserd/internal/store"
	"github.com/samber/do"
)

func Setup(ctx context.Context) *do.Injector {
	logger := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			logger.Info(fmt.Sprintf(format, args...))
		},
	})

	do.Provide[*config.Config](injector, func(i *do.Injector) (*config.Config, error) {
		return config.FromEnv()
	})
	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.ProvideValue[*http.Client](injector, http.DefaultClient)

	do.Provide[param.Fetcher](injector, param.NewParameterStoreFetcher)
	do.ProvideNamed[string](injector, "hf_token", func(i *do.Injector) (string, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.HFTokenParam == "" {
			return "", nil
		}
		return do.MustInvoke[param.Fetcher](i).Fetch(ctx, cfg.HFTokenParam)
	})

	do.ProvideValue[device.Selector](injector, device.NVMLSelector{})
	do.Provide[pipeline.Pipeline](injector, pipeline.NewWorkerClient)
	do.Provide[*model.Loader](injector, model.NewLoader)
	do.Provide[*generate.Orchestrator](injector, generate.NewOrchestrator)
	do.Provide[store.Uploader](injector, store.NewS3Uploader)
	do.Provide[*dispatch.Dispatcher](injector, dispatch.NewDispatcher)
	do.Provide[*handler.Handler](injector, handler.NewHandler)
	do.Provide[*serve.Server](injector, serve.NewServer)

	return injector
}
