package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/metadata"
)

// Config is the application configuration read from assets/config.toml.
// Missing keys keep their defaults; a missing file is not an error.
type Config struct {
	Application ApplicationSection `toml:"application"`
	Renderer    RendererSection    `toml:"renderer"`
}

type ApplicationSection struct {
	Name     string `toml:"name"`
	PosX     uint32 `toml:"pos_x"`
	PosY     uint32 `toml:"pos_y"`
	Width    uint32 `toml:"width"`
	Height   uint32 `toml:"height"`
	LogLevel string `toml:"log_level"`
}

type RendererSection struct {
	// Enables the validation layers and the debug callback.
	Debug bool `toml:"debug"`
	// Index into the shading-stage color table; 0 keeps the vertex colors.
	ColorSlot int    `toml:"color_slot"`
	Shader    string `toml:"shader"`
}

func Default() *Config {
	return &Config{
		Application: ApplicationSection{
			Name:     "Aquila",
			PosX:     100,
			PosY:     100,
			Width:    metadata.DefaultRenderWidth,
			Height:   metadata.DefaultRenderHeight,
			LogLevel: "info",
		},
		Renderer: RendererSection{
			Debug:     false,
			ColorSlot: 1,
			Shader:    "triangle",
		},
	}
}

// Load reads the file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		core.LogInfo("no config at '%s', using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing '%s': %w", path, err)
	}
	return cfg, nil
}

// LogLevel maps the configured name onto a logger level. Unknown names fall
// back to info.
func (c *Config) LogLevel() core.LogLevel {
	switch c.Application.LogLevel {
	case "debug":
		return core.LogLevelDebug
	case "warn":
		return core.LogLevelWarn
	case "error":
		return core.LogLevelError
	default:
		return core.LogLevelInfo
	}
}
