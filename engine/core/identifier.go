package core

import "github.com/google/uuid"

// DebugID tags GPU-side objects (buffers, fences, command lists) so log
// lines from the backend can be correlated with the pipeline object that
// owns them.
type DebugID string

func NewDebugID(kind string) DebugID {
	return DebugID(kind + "-" + uuid.NewString()[:8])
}

func (id DebugID) String() string {
	return string(id)
}
