package config

import (
	"fmt"
	"os"
	"strconv"
)

// Mode selects how generated images leave the service. It is a property of
// the deployment, not of individual requests.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

type Config struct {
	ModelID        string
	ModelCacheRoot string

	MaxWidth     int
	MaxHeight    int
	MaxSteps     int
	DefaultSteps int

	Mode           Mode
	OutputLocation string

	// RuntimeEndpoint is the base URL of the in-container diffusion worker.
	RuntimeEndpoint string
	// HFTokenParam names an SSM parameter holding a Hugging Face access
	// token for gated model downloads. Empty means no token.
	HFTokenParam string

	Addr string
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		ModelID:         envOr("MODEL_ID", "stabilityai/stable-diffusion-xl-base-1.0"),
		ModelCacheRoot:  envOr("MODEL_CACHE_ROOT", "/tmp/model_cache"),
		Mode:            ModeSync,
		OutputLocation:  os.Getenv("SAGEMAKER_OUTPUT_LOCATION"),
		RuntimeEndpoint: envOr("RUNTIME_ENDPOINT", "http://127.0.0.1:8500"),
		HFTokenParam:    os.Getenv("HF_TOKEN_PARAM"),
		Addr:            envOr("BIND_ADDR", ":8080"),
	}
	if os.Getenv("SAGEMAKER_INFERENCE_MODE") == string(ModeAsync) {
		cfg.Mode = ModeAsync
	}

	var err error
	if cfg.MaxWidth, err = intEnv("MAX_WIDTH", 1024); err != nil {
		return nil, err
	}
	if cfg.MaxHeight, err = intEnv("MAX_HEIGHT", 1024); err != nil {
		return nil, err
	}
	if cfg.MaxSteps, err = intEnv("MAX_STEPS", 50); err != nil {
		return nil, err
	}
	if cfg.DefaultSteps, err = intEnv("DEFAULT_STEPS", 20); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}
