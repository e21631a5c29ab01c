package device

import (
	"context"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/diffuserd/diffuserd/internal/log"
)

// NVMLSelector picks the first CUDA device when the NVIDIA management
// library is available, and falls back to CPU otherwise. Probing is cheap;
// no handle is kept past selection.
type NVMLSelector struct{}

func (NVMLSelector) Select(ctx context.Context) Device {
	logger := log.FromContextOrDiscard(ctx).WithGroup("device")

	if ret := nvml.Init(); ret != nvml.SUCCESS {
		logger.Warn("cuda not available, using cpu (will be very slow)", "nvml", nvml.ErrorString(ret))
		return Device{Kind: KindCPU}
	}
	defer func() { _ = nvml.Shutdown() }()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS || count == 0 {
		logger.Warn("no cuda devices found, using cpu (will be very slow)")
		return Device{Kind: KindCPU}
	}

	dev, ret := nvml.DeviceGetHandleByIndex(0)
	if ret != nvml.SUCCESS {
		logger.Warn("could not open cuda device, using cpu", "nvml", nvml.ErrorString(ret))
		return Device{Kind: KindCPU}
	}

	selected := Device{Kind: KindCUDA}
	if name, ret := dev.GetName(); ret == nvml.SUCCESS {
		selected.Name = name
	}
	if mem, ret := dev.GetMemoryInfo(); ret == nvml.SUCCESS {
		selected.MemoryBytes = mem.Total
	}

	logger.Info("selected cuda device",
		"gpu", selected.Name,
		"memory_gb", float64(selected.MemoryBytes)/(1<<30),
	)
	return selected
}
