package pipeline

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/aquila-gfx/aquila/engine/core"
	"github.com/aquila-gfx/aquila/engine/renderer/hal"
)

// A scripted software HAL. Queue operations are consumed in FIFO order by a
// separate goroutine standing in for the GPU, with optional injected latency
// so tests can stretch the window between submission and completion.

type softAdapter struct {
	name     string
	software bool
	level    hal.FeatureLevel
}

func (a *softAdapter) Info() hal.AdapterInfo {
	return hal.AdapterInfo{Name: a.name, IsSoftware: a.software}
}

func (a *softAdapter) SupportsFeatureLevel(level hal.FeatureLevel) bool {
	return a.level >= level
}

type softBackend struct {
	adapters  []hal.Adapter
	enumErr   error
	deviceErr error
	latency   time.Duration
}

func (b *softBackend) EnumerateAdapters() ([]hal.Adapter, error) {
	if b.enumErr != nil {
		return nil, b.enumErr
	}
	return b.adapters, nil
}

func (b *softBackend) CreateDevice(adapter hal.Adapter) (hal.Device, error) {
	if b.deviceErr != nil {
		return nil, b.deviceErr
	}
	return newSoftDevice(b.latency), nil
}

func (b *softBackend) Shutdown() error { return nil }

// gpuOp is one queue entry: either a command-list execution or a fence
// signal.
type gpuOp struct {
	list  *softList
	fence *softFence
	value uint64
}

type softGPU struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []gpuOp
	log     []string
	latency time.Duration
	closed  bool
	done    sync.WaitGroup
}

func newSoftGPU(latency time.Duration) *softGPU {
	g := &softGPU{latency: latency}
	g.cond = sync.NewCond(&g.mu)
	g.done.Add(1)
	go g.run()
	return g
}

func (g *softGPU) enqueue(op gpuOp, tag string) {
	g.mu.Lock()
	g.pending = append(g.pending, op)
	g.log = append(g.log, tag)
	g.cond.Broadcast()
	g.mu.Unlock()
}

func (g *softGPU) run() {
	defer g.done.Done()
	for {
		g.mu.Lock()
		for len(g.pending) == 0 && !g.closed {
			g.cond.Wait()
		}
		if len(g.pending) == 0 && g.closed {
			g.mu.Unlock()
			return
		}
		op := g.pending[0]
		g.pending = g.pending[1:]
		g.mu.Unlock()

		if g.latency > 0 {
			time.Sleep(g.latency)
		}
		if op.list != nil {
			op.list.execute()
		}
		if op.fence != nil {
			op.fence.signal(op.value)
		}
	}
}

func (g *softGPU) stop() {
	g.mu.Lock()
	g.closed = true
	g.cond.Broadcast()
	g.mu.Unlock()
	g.done.Wait()
}

// history returns the queue-order tags ("submit", "signal:N") seen so far.
func (g *softGPU) history() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.log...)
}

type softFence struct {
	id        core.DebugID
	mu        sync.Mutex
	cond      *sync.Cond
	completed uint64
	waitErr   error
}

func newSoftFence(initial uint64) *softFence {
	f := &softFence{id: core.NewDebugID("fence"), completed: initial}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *softFence) DebugID() core.DebugID { return f.id }

func (f *softFence) Completed() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

func (f *softFence) WaitFor(value uint64) error {
	if f.waitErr != nil {
		return f.waitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.completed < value {
		f.cond.Wait()
	}
	return nil
}

func (f *softFence) signal(value uint64) {
	f.mu.Lock()
	if value > f.completed {
		f.completed = value
	}
	f.cond.Broadcast()
	f.mu.Unlock()
}

func (f *softFence) Destroy() {}

type softQueue struct {
	gpu       *softGPU
	submitErr error
}

func (q *softQueue) Submit(list hal.CommandList) error {
	if q.submitErr != nil {
		return q.submitErr
	}
	l := list.(*softList)
	if !l.closed {
		return fmt.Errorf("submit of open command list")
	}
	l.alloc.markInFlight()
	q.gpu.enqueue(gpuOp{list: l}, "submit")
	return nil
}

func (q *softQueue) Signal(fence hal.Fence, value uint64) error {
	q.gpu.enqueue(gpuOp{fence: fence.(*softFence), value: value}, fmt.Sprintf("signal:%d", value))
	return nil
}

type softAllocator struct {
	mu         sync.Mutex
	inFlight   bool
	resetErr   error
	violations int
}

func (a *softAllocator) Reset() error {
	if a.resetErr != nil {
		return a.resetErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight {
		// The GPU is still consuming work recorded from this allocator.
		a.violations++
		return fmt.Errorf("allocator busy")
	}
	return nil
}

func (a *softAllocator) Destroy() {}

func (a *softAllocator) markInFlight() {
	a.mu.Lock()
	a.inFlight = true
	a.mu.Unlock()
}

func (a *softAllocator) retire() {
	a.mu.Lock()
	a.inFlight = false
	a.mu.Unlock()
}

func (a *softAllocator) resetViolations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.violations
}

type softOp struct {
	name   string
	view   hal.DescriptorHandle
	color  [4]float32
	from   hal.ResourceState
	to     hal.ResourceState
	target *softTarget
	stride uint32
	verts  uint32
	insts  uint32
}

type softList struct {
	device *softDevice
	alloc  *softAllocator
	ops    []softOp
	open   bool
	closed bool
	table  *softBuffer
	vb     *softBuffer
}

func (l *softList) Reset(alloc hal.CommandAllocator, initial hal.PipelineState) error {
	l.alloc = alloc.(*softAllocator)
	l.ops = nil
	l.open = true
	l.closed = false
	l.table = nil
	l.vb = nil
	return nil
}

func (l *softList) SetViewport(width, height uint32) {
	l.ops = append(l.ops, softOp{name: "viewport"})
}

func (l *softList) SetScissor(width, height uint32) {
	l.ops = append(l.ops, softOp{name: "scissor"})
}

func (l *softList) BindConstantTable(table hal.Buffer) {
	l.table = table.(*softBuffer)
	l.ops = append(l.ops, softOp{name: "bind-table"})
}

func (l *softList) Transition(target hal.RenderTarget, from, to hal.ResourceState) {
	l.ops = append(l.ops, softOp{name: "barrier", from: from, to: to, target: target.(*softTarget)})
}

func (l *softList) SetRenderTarget(view hal.DescriptorHandle) {
	l.ops = append(l.ops, softOp{name: "set-target", view: view})
}

func (l *softList) ClearRenderTarget(view hal.DescriptorHandle, color [4]float32) {
	l.ops = append(l.ops, softOp{name: "clear", view: view, color: color})
}

func (l *softList) BindVertexBuffer(buf hal.Buffer, strideBytes uint32) {
	l.vb = buf.(*softBuffer)
	l.ops = append(l.ops, softOp{name: "bind-vb", stride: strideBytes})
}

func (l *softList) DrawTriangleList(vertexCount, instanceCount uint32) {
	l.ops = append(l.ops, softOp{name: "draw", verts: vertexCount, insts: instanceCount})
}

func (l *softList) Close() error {
	l.open = false
	l.closed = true
	return nil
}

func (l *softList) Destroy() {}

func (l *softList) opNames() []string {
	names := make([]string, len(l.ops))
	for i, op := range l.ops {
		names[i] = op.name
	}
	return names
}

// execute interprets the recorded commands. Shading is simplified: a draw
// covers the whole target and every covered pixel takes the table color the
// slot-0 selector points at.
func (l *softList) execute() {
	var target *softTarget
	for _, op := range l.ops {
		switch op.name {
		case "barrier":
			op.target.setState(op.to, op.from)
		case "set-target":
			target = l.device.viewTarget(op.view)
		case "clear":
			t := l.device.viewTarget(op.view)
			t.requireState(hal.ResourceStateRenderTarget)
			t.fill(op.color)
		case "draw":
			if target != nil && l.table != nil {
				target.requireState(hal.ResourceStateRenderTarget)
				selector := colorTableSelector(l.table.data)
				target.fill(colorTableSlot(l.table.data, selector))
			}
		}
	}
	l.alloc.retire()
}

type softTarget struct {
	mu         sync.Mutex
	width      uint32
	height     uint32
	pixels     [][4]float32
	state      hal.ResourceState
	violations int
}

func newSoftTarget(width, height uint32) *softTarget {
	return &softTarget{
		width:  width,
		height: height,
		pixels: make([][4]float32, width*height),
		state:  hal.ResourceStatePresent,
	}
}

func (t *softTarget) Width() uint32  { return t.width }
func (t *softTarget) Height() uint32 { return t.height }

func (t *softTarget) setState(to, declaredFrom hal.ResourceState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != declaredFrom {
		t.violations++
	}
	t.state = to
}

func (t *softTarget) requireState(want hal.ResourceState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != want {
		t.violations++
	}
}

func (t *softTarget) fill(color [4]float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.pixels {
		t.pixels[i] = color
	}
}

func (t *softTarget) at(x, y uint32) [4]float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pixels[y*t.width+x]
}

func (t *softTarget) stateViolations() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.violations
}

type softSurface struct {
	mu         sync.Mutex
	targets    []*softTarget
	index      int
	presents   int
	presentErr error
	// advance picks the next back-buffer index after a present. Tests can
	// script it to break round-robin alternation.
	advance func(current, presents int) int
}

func (s *softSurface) BufferCount() int { return len(s.targets) }

func (s *softSurface) Buffer(i int) hal.RenderTarget { return s.targets[i] }

func (s *softSurface) CurrentBackBufferIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *softSurface) Present() error {
	if s.presentErr != nil {
		return s.presentErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presents++
	if s.advance != nil {
		s.index = s.advance(s.index, s.presents)
	} else {
		s.index = (s.index + 1) % len(s.targets)
	}
	return nil
}

func (s *softSurface) presentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

func (s *softSurface) Destroy() {}

type softBuffer struct {
	id     core.DebugID
	data   []byte
	mapErr error
}

func (b *softBuffer) DebugID() core.DebugID { return b.id }
func (b *softBuffer) SizeBytes() uint64     { return uint64(len(b.data)) }

func (b *softBuffer) Map() ([]byte, error) {
	if b.mapErr != nil {
		return nil, b.mapErr
	}
	return b.data, nil
}

func (b *softBuffer) Unmap()   {}
func (b *softBuffer) Destroy() {}

type softTable struct {
	base     hal.DescriptorHandle
	capacity uint32
}

func (t *softTable) Capacity() uint32                 { return t.capacity }
func (t *softTable) BaseHandle() hal.DescriptorHandle { return t.base }
func (t *softTable) Destroy()                         {}

type softPSO struct {
	id core.DebugID
}

func (p *softPSO) DebugID() core.DebugID { return p.id }
func (p *softPSO) Destroy()              {}

// softDescriptorIncrement is deliberately not 1 so stride mistakes in the
// frame ring show up as wrong view handles.
const softDescriptorIncrement uint64 = 32

type softDevice struct {
	id        core.DebugID
	gpu       *softGPU
	tables    int
	views     map[hal.DescriptorHandle]*softTarget
	surface   *softSurface
	allocErr  error
	submitErr error
}

func newSoftDevice(latency time.Duration) *softDevice {
	return &softDevice{
		id:    core.NewDebugID("soft-device"),
		gpu:   newSoftGPU(latency),
		views: map[hal.DescriptorHandle]*softTarget{},
	}
}

func (d *softDevice) DebugID() core.DebugID { return d.id }

func (d *softDevice) CreateQueue() (hal.Queue, error) {
	return &softQueue{gpu: d.gpu, submitErr: d.submitErr}, nil
}

func (d *softDevice) CreateFence(initialValue uint64) (hal.Fence, error) {
	return newSoftFence(initialValue), nil
}

func (d *softDevice) CreateCommandAllocator() (hal.CommandAllocator, error) {
	return &softAllocator{resetErr: d.allocErr}, nil
}

func (d *softDevice) CreateCommandList(alloc hal.CommandAllocator) (hal.CommandList, error) {
	return &softList{device: d, alloc: alloc.(*softAllocator)}, nil
}

func (d *softDevice) CreateUploadBuffer(sizeBytes uint64) (hal.Buffer, error) {
	return &softBuffer{id: core.NewDebugID("buffer"), data: make([]byte, sizeBytes)}, nil
}

func (d *softDevice) CreateSwapchain(queue hal.Queue, window hal.WindowHandle, width, height uint32, bufferCount int) (hal.Surface, error) {
	targets := make([]*softTarget, bufferCount)
	for i := range targets {
		targets[i] = newSoftTarget(width, height)
	}
	d.surface = &softSurface{targets: targets}
	return d.surface, nil
}

func (d *softDevice) DescriptorIncrement(kind hal.DescriptorKind) uint64 {
	return softDescriptorIncrement
}

func (d *softDevice) CreateDescriptorTable(kind hal.DescriptorKind, capacity uint32) (hal.DescriptorTable, error) {
	d.tables++
	return &softTable{base: hal.DescriptorHandle(0x8000 * d.tables), capacity: capacity}, nil
}

func (d *softDevice) CreateRenderTargetView(target hal.RenderTarget, at hal.DescriptorHandle) error {
	d.views[at] = target.(*softTarget)
	return nil
}

func (d *softDevice) CreatePipelineState(artifact *hal.ShaderArtifact) (hal.PipelineState, error) {
	return &softPSO{id: core.NewDebugID("pso")}, nil
}

func (d *softDevice) Destroy() {
	d.gpu.stop()
}

func (d *softDevice) viewTarget(view hal.DescriptorHandle) *softTarget {
	return d.views[view]
}

// colorTableSelector reads the float selector baked into slot 0.
func colorTableSelector(data []byte) int {
	return int(float32FromBytes(data[0:4]))
}

func colorTableSlot(data []byte, slot int) [4]float32 {
	var c [4]float32
	off := slot * colorSlotBytes
	for j := 0; j < 4; j++ {
		c[j] = float32FromBytes(data[off+j*4 : off+j*4+4])
	}
	return c
}

func float32FromBytes(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
