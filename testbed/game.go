package testbed

import (
	"github.com/aquila-gfx/aquila/engine"
	"github.com/aquila-gfx/aquila/engine/config"
	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer"
)

// slotCycleSeconds is how long each color table slot stays selected before
// the demo advances to the next one.
const slotCycleSeconds = 2.0

type TestGame struct {
	*engine.Game
}

type gameState struct {
	sinceSlotChange float64
	slot            int
}

func NewTestGame() (*TestGame, error) {
	cfg, err := config.Load("assets/config.toml")
	if err != nil {
		return nil, err
	}

	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: engine.ApplicationConfigFrom(cfg),
			State: &gameState{
				slot: cfg.Renderer.ColorSlot,
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (tg *TestGame) Initialize() error {
	core.LogInfo("testbed initialized, starting on color slot %d", tg.Renderer.ColorSlot())
	return nil
}

// Update walks the selector through the populated palette slots, plus slot 0
// for the interpolated vertex colors.
func (tg *TestGame) Update(deltaTime float64) error {
	state := tg.State.(*gameState)
	state.sinceSlotChange += deltaTime
	if state.sinceSlotChange < slotCycleSeconds {
		return nil
	}
	state.sinceSlotChange = 0

	state.slot = (state.slot + 1) % (len(renderer.DefaultPalette) + 1)
	if err := tg.Renderer.SetColorSlot(state.slot); err != nil {
		return err
	}
	core.LogInfo("color slot -> %d (%.1f fps)", state.slot, core.MetricsFPS())
	return nil
}

func (tg *TestGame) OnResize(width uint32, height uint32) error {
	return nil
}

func (tg *TestGame) Shutdown() error {
	core.LogInfo("testbed shutting down after %d frames", tg.Renderer.FramesPresented())
	return nil
}
