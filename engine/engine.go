package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aquila-gfx/aquila/engine/assets"
	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/platform"
	"github.com/aquila-gfx/aquila/engine/renderer"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
	"github.com/aquila-gfx/aquila/engine/renderer/metadata"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer
	width        uint32
	height       uint32
	clock        *core.Clock
	lastTime     float64

	paintRequested bool
}

func New(g *Game) (*Engine, error) {
	p := platform.New()

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		platform:     p,
		assetManager: am,
		isRunning:    true,
		isSuspended:  false,
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
		lastTime:     0,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageBooting

	core.SetLogLevel(e.gameInstance.ApplicationConfig.LogLevel)

	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_PAINT, e, e.onPaint)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)

	if err := e.platform.Startup(e.gameInstance.ApplicationConfig.Name,
		e.gameInstance.ApplicationConfig.StartPosX,
		e.gameInstance.ApplicationConfig.StartPosY,
		e.width,
		e.height); err != nil {
		return err
	}
	e.currentStage = EngineStageBootComplete

	e.currentStage = EngineStageInitializing
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := e.assetManager.Initialize(filepath.Join(wd, "assets")); err != nil {
		return err
	}

	artifact, err := e.loadShaderArtifact(e.gameInstance.ApplicationConfig.ShaderName)
	if err != nil {
		return err
	}

	r, err := renderer.New(e.gameInstance.ApplicationConfig.Name, e.platform.Window,
		e.width, e.height, e.gameInstance.ApplicationConfig.RendererDebug, artifact)
	if err != nil {
		return err
	}
	e.renderer = r
	e.gameInstance.Renderer = r

	if err := r.SetColorSlot(e.gameInstance.ApplicationConfig.ColorSlot); err != nil {
		return err
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// loadShaderArtifact pulls both compiled stages off disk and pairs them with
// the vertex layout they were compiled against.
func (e *Engine) loadShaderArtifact(name string) (*hal.ShaderArtifact, error) {
	vert, err := e.assetManager.LoadAsset(name+".vert", metadata.ResourceTypeShader, nil)
	if err != nil {
		return nil, fmt.Errorf("vertex stage of '%s': %w", name, err)
	}
	frag, err := e.assetManager.LoadAsset(name+".frag", metadata.ResourceTypeShader, nil)
	if err != nil {
		return nil, fmt.Errorf("pixel stage of '%s': %w", name, err)
	}

	return &hal.ShaderArtifact{
		Name:       name,
		VertexCode: vert.Data,
		PixelCode:  frag.Data,
		InputLayout: []hal.VertexAttribute{
			{Semantic: "POSITION", Floats: 3, ByteOffset: metadata.PositionByteOffset},
			{Semantic: "COLOR", Floats: 4, ByteOffset: metadata.ColorByteOffset},
		},
	}, nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}

		if e.isSuspended {
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.GetAbsoluteTime()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err)
				e.isRunning = false
				break
			}
		}

		// One paint request, one frame.
		if e.paintRequested {
			e.paintRequested = false
			if err := e.renderer.DrawFrame(); err != nil {
				core.LogError("frame failed, shutting down: %s", err)
				e.isRunning = false
				break
			}
		}

		frameElapsedTime := e.platform.GetAbsoluteTime() - frameStartTime
		core.MetricsUpdate(frameElapsedTime)

		e.lastTime = currentTime
	}

	return nil
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown || e.currentStage == EngineStageUninitialized {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError(err.Error())
		}
	}

	if e.renderer != nil {
		if err := e.renderer.Shutdown(); err != nil {
			core.LogError(err.Error())
		}
		e.renderer = nil
	}

	if err := e.assetManager.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if err := core.EventSystemShutdown(); err != nil {
		core.LogError(err.Error())
	}
	return e.platform.Shutdown()
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onPaint(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	e.paintRequested = true
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	// The swapchain is fixed for the process lifetime; log and carry on.
	core.LogInfo("window resized to %dx%d; surface stays at %dx%d",
		data.Data.U16[0], data.Data.U16[1], e.width, e.height)
	return false
}
