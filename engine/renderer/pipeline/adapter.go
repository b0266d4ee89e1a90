package pipeline

import (
	"fmt"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

// SelectHardwareAdapter walks adapters in enumeration order and returns the
// first hardware adapter that meets the baseline feature level. Probing does
// not create a device; that is deferred to CreateDevice.
func SelectHardwareAdapter(backend hal.Backend) (hal.Adapter, error) {
	adapters, err := backend.EnumerateAdapters()
	if err != nil {
		err := fmt.Errorf("%w: enumeration: %v", core.ErrNoSuitableAdapter, err)
		core.LogError(err.Error())
		return nil, err
	}

	for _, adapter := range adapters {
		info := adapter.Info()
		if info.IsSoftware {
			// Software fallback is explicitly rejected.
			core.LogDebug("skipping software adapter '%s'", info.Name)
			continue
		}
		if !adapter.SupportsFeatureLevel(hal.FeatureLevelBaseline) {
			core.LogDebug("adapter '%s' below baseline feature level, skipping", info.Name)
			continue
		}
		core.LogInfo("selected adapter: '%s'", info.Name)
		return adapter, nil
	}

	core.LogError(core.ErrNoSuitableAdapter.Error())
	return nil, core.ErrNoSuitableAdapter
}
