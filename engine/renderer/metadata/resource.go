package metadata

type ResourceType int

const (
	ResourceTypeShader ResourceType = iota
	ResourceTypeBinary
)

// Resource is a loaded asset straight off disk.
type Resource struct {
	Name     string
	FullPath string
	DataSize uint64
	Data     []byte
}
