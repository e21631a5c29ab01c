// Package device probes the host for an accelerator. The selected device is
// recorded on the model snapshot and reported in generation metadata.
package device

import (
	"context"

	"github.com/diffuserd/diffuserd/internal/log"
)

const (
	KindCUDA = "cuda"
	KindCPU  = "cpu"
)

type Device struct {
	Kind        string
	Name        string
	MemoryBytes uint64
}

type Selector interface {
	Select(context.Context) Device
}

// Static always reports the same device. Used by tests and by deployments
// that pin the device explicitly.
type Static struct {
	Device Device
}

func (s Static) Select(ctx context.Context) Device {
	log.FromContextOrDiscard(ctx).WithGroup("device").Info("using pinned device", "kind", s.Device.Kind)
	return s.Device
}
