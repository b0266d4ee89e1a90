package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

func TestSelectHardwareAdapterSkipsSoftware(t *testing.T) {
	backend := &softBackend{
		adapters: []hal.Adapter{
			&softAdapter{name: "warp", software: true, level: hal.FeatureLevelBaseline},
			&softAdapter{name: "legacy", level: hal.FeatureLevelBaseline - 1},
			&softAdapter{name: "discrete", level: hal.FeatureLevelBaseline},
			&softAdapter{name: "second-discrete", level: hal.FeatureLevelBaseline},
		},
	}

	adapter, err := SelectHardwareAdapter(backend)
	require.NoError(t, err)
	require.False(t, adapter.Info().IsSoftware)
	// Enumeration order decides among qualifying adapters.
	require.Equal(t, "discrete", adapter.Info().Name)
}

func TestSelectHardwareAdapterNeverReturnsSoftware(t *testing.T) {
	// Only software adapters qualify on capability; the selector must still
	// refuse all of them.
	backend := &softBackend{
		adapters: []hal.Adapter{
			&softAdapter{name: "warp", software: true, level: hal.FeatureLevelBaseline},
			&softAdapter{name: "reference", software: true, level: hal.FeatureLevelBaseline},
		},
	}

	_, err := SelectHardwareAdapter(backend)
	require.ErrorIs(t, err, core.ErrNoSuitableAdapter)
}

func TestSelectHardwareAdapterExhaustion(t *testing.T) {
	backend := &softBackend{
		adapters: []hal.Adapter{
			&softAdapter{name: "legacy", level: hal.FeatureLevelBaseline - 1},
		},
	}

	_, err := SelectHardwareAdapter(backend)
	require.ErrorIs(t, err, core.ErrNoSuitableAdapter)
}

func TestSelectHardwareAdapterEnumerationError(t *testing.T) {
	backend := &softBackend{enumErr: fmt.Errorf("factory gone")}

	_, err := SelectHardwareAdapter(backend)
	require.ErrorIs(t, err, core.ErrNoSuitableAdapter)
}

func TestCreateDeviceFailure(t *testing.T) {
	backend := &softBackend{
		adapters:  []hal.Adapter{&softAdapter{name: "discrete", level: hal.FeatureLevelBaseline}},
		deviceErr: errors.New("adapter removed"),
	}

	adapter, err := SelectHardwareAdapter(backend)
	require.NoError(t, err)

	_, err = CreateDevice(backend, adapter)
	require.ErrorIs(t, err, core.ErrDeviceCreationFailed)
}
