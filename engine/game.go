package engine

import (
	"github.com/aquila-gfx/aquila/engine/renderer"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	Renderer          *renderer.Renderer
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
