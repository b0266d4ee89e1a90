package engine

import (
	"github.com/aquila-gfx/aquila/engine/config"
	"github.com/aquila-gfx/aquila/engine/core"
)

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32
	// Window starting position y axis, if applicable.
	StartPosY uint32
	// Window starting width, if applicable.
	StartWidth uint32
	// Window starting height, if applicable.
	StartHeight uint32
	// The application name used in windowing, if applicable.
	Name     string
	LogLevel core.LogLevel
	// Enables the graphics debug layer and validation.
	RendererDebug bool
	// Named shader artifact the pipeline state is built from.
	ShaderName string
	// Color table slot selected at startup.
	ColorSlot int
}

// ApplicationConfigFrom maps the on-disk config onto the application config.
func ApplicationConfigFrom(cfg *config.Config) *ApplicationConfig {
	return &ApplicationConfig{
		StartPosX:     cfg.Application.PosX,
		StartPosY:     cfg.Application.PosY,
		StartWidth:    cfg.Application.Width,
		StartHeight:   cfg.Application.Height,
		Name:          cfg.Application.Name,
		LogLevel:      cfg.LogLevel(),
		RendererDebug: cfg.Renderer.Debug,
		ShaderName:    cfg.Renderer.Shader,
		ColorSlot:     cfg.Renderer.ColorSlot,
	}
}
