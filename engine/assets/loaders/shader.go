package loaders

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aquila-gfx/aquila/engine/renderer/metadata"
)

// ShaderLoader reads compiled SPIR-V off disk. Compilation happens in the
// build step; a file that is not a word multiple was not produced by it.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("'%s' is not a SPIR-V binary", path)
	}
	name := filepath.Base(path)
	return &metadata.Resource{
		Name:     name[:len(name)-len(filepath.Ext(name))],
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     data,
	}, nil
}

func (sl *ShaderLoader) Unload(*metadata.Resource) error {
	return nil
}
