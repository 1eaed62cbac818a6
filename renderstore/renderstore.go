// Package renderstore implements a per-entity render-data store:
// TRS, hierarchy parents, colors, local/world matrices and custom
// numeric fields in flat contiguous arrays, with world matrices
// composed from the parent graph and dirty state mirrored to GPU
// buffers through gpusync. Matrix and quaternion math rides on mgl32.
package renderstore

import (
	"fmt"
	"unsafe"

	ecsruntime "github.com/TheBitDrifter/ecsruntime"
	"github.com/TheBitDrifter/ecsruntime/change"
	"github.com/TheBitDrifter/ecsruntime/gpusync"
	"github.com/TheBitDrifter/ecsruntime/internal/rlog"
	"github.com/go-gl/mathgl/mgl32"
)

// Strides, in float32 scalars per slot.
const (
	positionStride = 3
	rotationStride = 4
	scaleStride    = 3
	colorStride    = 4
	matrixStride   = 16
)

// Change-tracker type ids for the store's built-in fields. Custom
// fields are assigned ids from customFieldTypeBase upward in
// registration order.
const (
	TransformType change.TypeID = iota + 1
	ColorType
	HierarchyType

	customFieldTypeBase change.TypeID = 100
)

const defaultCapacity = 64

// NoParent is the parent-slot value meaning "unparented".
const NoParent int32 = -1

// Options configure a Store.
type Options struct {
	InitialCapacity int
	// Label prefixes GPU sub-buffer names: "<label>_worldMatrices",
	// "<label>_colors", "<label>_<custom>".
	Label                 string
	EnableChangeDetection bool
	EnableGPUSync         bool
}

type customField struct {
	name    string
	stride  int
	gpuSync bool
	typeID  change.TypeID
	data    []float32
}

// Store is a RenderDataStore. Slots are integer indices into its flat
// per-field arrays, bound 1:1 with entities; freed slots are recycled
// through a free list.
type Store struct {
	label    string
	capacity int

	positions     []float32
	rotations     []float32 // quaternion x,y,z,w
	scales        []float32
	colors        []float32
	localMatrices []float32
	worldMatrices []float32
	parentSlots   []int32
	dirty         []uint8

	allocated    []bool
	entityBySlot []ecsruntime.EntityHandle
	slotByEntity map[ecsruntime.EntityHandle]int
	freeSlots    []int
	highWater    int // slots ever handed out, the grow boundary

	custom      map[string]*customField
	customOrder []string

	tracker *change.Tracker
	gpu     *gpusync.Sync
}

// NewStore returns a Store with opts applied; zero-value options give a
// 64-slot store labeled "renderdata" with change detection and GPU sync
// both disabled.
func NewStore(opts Options) *Store {
	capacity := opts.InitialCapacity
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	label := opts.Label
	if label == "" {
		label = "renderdata"
	}
	s := &Store{
		label:        label,
		slotByEntity: make(map[ecsruntime.EntityHandle]int),
		custom:       make(map[string]*customField),
	}
	if opts.EnableChangeDetection {
		s.tracker = change.NewTracker()
		s.tracker.RegisterComponent(TransformType)
		s.tracker.RegisterComponent(ColorType)
		s.tracker.RegisterComponent(HierarchyType)
	}
	if opts.EnableGPUSync {
		s.gpu = gpusync.NewSync()
	}
	s.grow(capacity)
	if s.gpu != nil {
		s.registerGPUStorages()
	}
	return s
}

// Capacity returns the current slot capacity.
func (s *Store) Capacity() int {
	return s.capacity
}

// AllocatedCount returns the number of live slots.
func (s *Store) AllocatedCount() int {
	return len(s.slotByEntity)
}

// Tracker returns the store's change tracker, or nil when change
// detection is disabled.
func (s *Store) Tracker() *change.Tracker {
	return s.tracker
}

// grow extends every field array to newCapacity slots, preserving
// existing values and default-initializing the new rows (identity TRS,
// white color, identity matrices, no parent, dirty). GPU source
// pointers for mirrored fields are refreshed afterwards.
func (s *Store) grow(newCapacity int) {
	old := s.capacity
	s.positions = growFloats(s.positions, newCapacity*positionStride)
	s.rotations = growFloats(s.rotations, newCapacity*rotationStride)
	s.scales = growFloats(s.scales, newCapacity*scaleStride)
	s.colors = growFloats(s.colors, newCapacity*colorStride)
	s.localMatrices = growFloats(s.localMatrices, newCapacity*matrixStride)
	s.worldMatrices = growFloats(s.worldMatrices, newCapacity*matrixStride)

	grownParents := make([]int32, newCapacity)
	copy(grownParents, s.parentSlots)
	s.parentSlots = grownParents
	grownDirty := make([]uint8, newCapacity)
	copy(grownDirty, s.dirty)
	s.dirty = grownDirty
	grownAlloc := make([]bool, newCapacity)
	copy(grownAlloc, s.allocated)
	s.allocated = grownAlloc
	grownEntities := make([]ecsruntime.EntityHandle, newCapacity)
	for i := range grownEntities {
		grownEntities[i] = ecsruntime.InvalidEntityHandle
	}
	copy(grownEntities, s.entityBySlot)
	s.entityBySlot = grownEntities

	for _, name := range s.customOrder {
		f := s.custom[name]
		f.data = growFloats(f.data, newCapacity*f.stride)
	}

	s.capacity = newCapacity
	for slot := old; slot < newCapacity; slot++ {
		s.resetSlot(slot)
	}

	if s.gpu != nil && old > 0 {
		s.refreshGPUSources()
	}
}

func growFloats(data []float32, newLen int) []float32 {
	grown := make([]float32, newLen)
	copy(grown, data)
	return grown
}

// resetSlot restores slot to defaults: identity TRS, white color, no
// parent, identity matrices, dirty.
func (s *Store) resetSlot(slot int) {
	p := s.positions[slot*positionStride:]
	p[0], p[1], p[2] = 0, 0, 0
	r := s.rotations[slot*rotationStride:]
	r[0], r[1], r[2], r[3] = 0, 0, 0, 1
	sc := s.scales[slot*scaleStride:]
	sc[0], sc[1], sc[2] = 1, 1, 1
	c := s.colors[slot*colorStride:]
	c[0], c[1], c[2], c[3] = 1, 1, 1, 1
	writeIdentity(s.localMatrices[slot*matrixStride:])
	writeIdentity(s.worldMatrices[slot*matrixStride:])
	s.parentSlots[slot] = NoParent
	s.dirty[slot] = 1
	for _, name := range s.customOrder {
		f := s.custom[name]
		row := f.data[slot*f.stride : (slot+1)*f.stride]
		for i := range row {
			row[i] = 0
		}
	}
}

func writeIdentity(m []float32) {
	ident := mgl32.Ident4()
	copy(m[:matrixStride], ident[:])
}

// Allocate binds a slot to e, idempotently: an entity already holding a
// slot gets the same slot back. Picks from the free list first, doubles
// capacity when exhausted.
func (s *Store) Allocate(e ecsruntime.EntityHandle) int {
	if slot, ok := s.slotByEntity[e]; ok {
		return slot
	}
	var slot int
	if n := len(s.freeSlots); n > 0 {
		slot = s.freeSlots[n-1]
		s.freeSlots = s.freeSlots[:n-1]
	} else {
		if s.highWater >= s.capacity {
			s.grow(s.capacity * 2)
		}
		slot = s.highWater
		s.highWater++
	}
	s.resetSlot(slot)
	s.allocated[slot] = true
	s.entityBySlot[slot] = e
	s.slotByEntity[e] = slot
	if s.tracker != nil {
		s.tracker.MarkAdded(e.Index(), TransformType)
	}
	return slot
}

// Free returns e's slot to the free list. No-op for an entity without a
// slot.
func (s *Store) Free(e ecsruntime.EntityHandle) bool {
	slot, ok := s.slotByEntity[e]
	if !ok {
		return false
	}
	delete(s.slotByEntity, e)
	s.allocated[slot] = false
	s.entityBySlot[slot] = ecsruntime.InvalidEntityHandle
	s.freeSlots = append(s.freeSlots, slot)
	if s.tracker != nil {
		s.tracker.MarkRemoved(e.Index(), TransformType)
	}
	return true
}

// SlotOf returns e's slot.
func (s *Store) SlotOf(e ecsruntime.EntityHandle) (int, bool) {
	slot, ok := s.slotByEntity[e]
	return slot, ok
}

// EntityOf returns the entity bound to slot.
func (s *Store) EntityOf(slot int) (ecsruntime.EntityHandle, bool) {
	if slot < 0 || slot >= s.capacity || !s.allocated[slot] {
		return ecsruntime.InvalidEntityHandle, false
	}
	return s.entityBySlot[slot], true
}

func (s *Store) validSlot(slot int) bool {
	return slot >= 0 && slot < s.capacity && s.allocated[slot]
}

func (s *Store) markTransformed(slot int) {
	s.dirty[slot] = 1
	if s.tracker != nil {
		s.tracker.MarkModified(s.entityBySlot[slot].Index(), TransformType)
	}
}

// SetPosition writes slot's position and marks it dirty.
func (s *Store) SetPosition(slot int, x, y, z float32) bool {
	if !s.validSlot(slot) {
		return false
	}
	p := s.positions[slot*positionStride:]
	p[0], p[1], p[2] = x, y, z
	s.markTransformed(slot)
	return true
}

// GetPosition reads slot's position.
func (s *Store) GetPosition(slot int) (mgl32.Vec3, bool) {
	if !s.validSlot(slot) {
		return mgl32.Vec3{}, false
	}
	p := s.positions[slot*positionStride:]
	return mgl32.Vec3{p[0], p[1], p[2]}, true
}

// SetRotation writes slot's rotation quaternion and marks it dirty.
func (s *Store) SetRotation(slot int, q mgl32.Quat) bool {
	if !s.validSlot(slot) {
		return false
	}
	r := s.rotations[slot*rotationStride:]
	r[0], r[1], r[2], r[3] = q.V[0], q.V[1], q.V[2], q.W
	s.markTransformed(slot)
	return true
}

// SetRotationEuler writes slot's rotation from XYZ euler angles, in
// radians.
func (s *Store) SetRotationEuler(slot int, x, y, z float32) bool {
	return s.SetRotation(slot, mgl32.AnglesToQuat(x, y, z, mgl32.XYZ))
}

// GetRotation reads slot's rotation quaternion.
func (s *Store) GetRotation(slot int) (mgl32.Quat, bool) {
	if !s.validSlot(slot) {
		return mgl32.Quat{}, false
	}
	r := s.rotations[slot*rotationStride:]
	return mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}, true
}

// SetScale writes slot's per-axis scale and marks it dirty.
func (s *Store) SetScale(slot int, x, y, z float32) bool {
	if !s.validSlot(slot) {
		return false
	}
	sc := s.scales[slot*scaleStride:]
	sc[0], sc[1], sc[2] = x, y, z
	s.markTransformed(slot)
	return true
}

// SetUniformScale writes the same scale on every axis.
func (s *Store) SetUniformScale(slot int, v float32) bool {
	return s.SetScale(slot, v, v, v)
}

// GetScale reads slot's scale.
func (s *Store) GetScale(slot int) (mgl32.Vec3, bool) {
	if !s.validSlot(slot) {
		return mgl32.Vec3{}, false
	}
	sc := s.scales[slot*scaleStride:]
	return mgl32.Vec3{sc[0], sc[1], sc[2]}, true
}

// SetColor writes slot's RGBA color; the color buffer region for this
// slot alone is marked dirty for GPU sync (colors don't ride the
// matrix recompute path).
func (s *Store) SetColor(slot int, r, g, b, a float32) bool {
	if !s.validSlot(slot) {
		return false
	}
	c := s.colors[slot*colorStride:]
	c[0], c[1], c[2], c[3] = r, g, b, a
	if s.tracker != nil {
		s.tracker.MarkModified(s.entityBySlot[slot].Index(), ColorType)
	}
	if s.gpu != nil {
		s.gpu.MarkDirty(s.colorBufferName(), uint64(slot*colorStride*4), colorStride*4)
	}
	return true
}

// GetColor reads slot's RGBA color.
func (s *Store) GetColor(slot int) (mgl32.Vec4, bool) {
	if !s.validSlot(slot) {
		return mgl32.Vec4{}, false
	}
	c := s.colors[slot*colorStride:]
	return mgl32.Vec4{c[0], c[1], c[2], c[3]}, true
}

// SetParent records parent as slot's hierarchy parent. Both slots must
// be allocated; acyclicity of the parent graph is the caller's
// responsibility (UpdateWorldMatrices bounds itself against cycles).
func (s *Store) SetParent(slot, parent int) bool {
	if !s.validSlot(slot) || !s.validSlot(parent) {
		return false
	}
	s.parentSlots[slot] = int32(parent)
	s.dirty[slot] = 1
	if s.tracker != nil {
		s.tracker.MarkModified(s.entityBySlot[slot].Index(), HierarchyType)
	}
	return true
}

// GetParent returns slot's parent slot, or NoParent.
func (s *Store) GetParent(slot int) int32 {
	if !s.validSlot(slot) {
		return NoParent
	}
	return s.parentSlots[slot]
}

// ClearParent unparents slot.
func (s *Store) ClearParent(slot int) bool {
	if !s.validSlot(slot) {
		return false
	}
	s.parentSlots[slot] = NoParent
	s.dirty[slot] = 1
	if s.tracker != nil {
		s.tracker.MarkModified(s.entityBySlot[slot].Index(), HierarchyType)
	}
	return true
}

// WorldMatrix returns slot's 16-float world matrix slice (a live view
// into the contiguous buffer, column-major).
func (s *Store) WorldMatrix(slot int) ([]float32, bool) {
	if !s.validSlot(slot) {
		return nil, false
	}
	return s.worldMatrices[slot*matrixStride : (slot+1)*matrixStride], true
}

// LocalMatrix returns slot's 16-float local matrix slice.
func (s *Store) LocalMatrix(slot int) ([]float32, bool) {
	if !s.validSlot(slot) {
		return nil, false
	}
	return s.localMatrices[slot*matrixStride : (slot+1)*matrixStride], true
}

// AllWorldMatrices returns the whole contiguous world-matrix buffer,
// capacity*16 floats, the slice GPU sync uploads from.
func (s *Store) AllWorldMatrices() []float32 {
	return s.worldMatrices
}

// AddCustomField registers a named per-slot float field of the given
// stride, optionally mirrored to a GPU buffer. Returns false if the
// name is taken.
func (s *Store) AddCustomField(name string, stride int, gpuSync bool) bool {
	if _, exists := s.custom[name]; exists {
		rlog.Default.Warnf("renderstore: custom field %q already registered", name)
		return false
	}
	f := &customField{
		name:    name,
		stride:  stride,
		gpuSync: gpuSync,
		typeID:  customFieldTypeBase + change.TypeID(len(s.customOrder)),
		data:    make([]float32, s.capacity*stride),
	}
	s.custom[name] = f
	s.customOrder = append(s.customOrder, name)
	if s.tracker != nil {
		s.tracker.RegisterComponent(f.typeID)
	}
	if s.gpu != nil && gpuSync {
		s.registerCustomGPUStorage(f)
	}
	return true
}

// SetCustomField writes slot's values for field name; values must match
// the field's stride.
func (s *Store) SetCustomField(slot int, name string, values []float32) bool {
	f, ok := s.custom[name]
	if !ok || !s.validSlot(slot) || len(values) != f.stride {
		return false
	}
	copy(f.data[slot*f.stride:(slot+1)*f.stride], values)
	if s.tracker != nil {
		s.tracker.MarkModified(s.entityBySlot[slot].Index(), f.typeID)
	}
	if s.gpu != nil && f.gpuSync {
		s.gpu.MarkDirty(s.customBufferName(name), uint64(slot*f.stride*4), uint64(f.stride*4))
	}
	return true
}

// GetCustomField reads slot's values for field name as a live view.
func (s *Store) GetCustomField(slot int, name string) ([]float32, bool) {
	f, ok := s.custom[name]
	if !ok || !s.validSlot(slot) {
		return nil, false
	}
	return f.data[slot*f.stride : (slot+1)*f.stride], true
}

// EndFrame clears the change tracker, the store's frame boundary.
func (s *Store) EndFrame() {
	if s.tracker != nil {
		s.tracker.ClearAll()
	}
}

func (s *Store) worldMatrixBufferName() string { return s.label + "_worldMatrices" }
func (s *Store) colorBufferName() string       { return s.label + "_colors" }
func (s *Store) customBufferName(name string) string {
	return fmt.Sprintf("%s_%s", s.label, name)
}

// floatBytes reinterprets a float32 slice as its backing bytes without
// copying, the zero-copy upload view gpusync sources want.
func floatBytes(data []float32) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}

func (s *Store) registerGPUStorages() {
	s.gpu.RegisterStorage(s.worldMatrixBufferName(), floatBytes(s.worldMatrices), gpusync.Options{
		Usage:      gpusync.UsageStorage | gpusync.UsageCopyDst,
		Hint:       gpusync.HintDynamic,
		Label:      s.worldMatrixBufferName(),
		AutoResize: true,
	})
	s.gpu.RegisterStorage(s.colorBufferName(), floatBytes(s.colors), gpusync.Options{
		Usage:      gpusync.UsageStorage | gpusync.UsageCopyDst,
		Hint:       gpusync.HintDynamic,
		Label:      s.colorBufferName(),
		AutoResize: true,
	})
	for _, name := range s.customOrder {
		if f := s.custom[name]; f.gpuSync {
			s.registerCustomGPUStorage(f)
		}
	}
}

func (s *Store) registerCustomGPUStorage(f *customField) {
	s.gpu.RegisterStorage(s.customBufferName(f.name), floatBytes(f.data), gpusync.Options{
		Usage:      gpusync.UsageStorage | gpusync.UsageCopyDst,
		Hint:       gpusync.HintDynamic,
		Label:      s.customBufferName(f.name),
		AutoResize: true,
	})
}

// refreshGPUSources re-points every mirrored storage at the regrown
// CPU arrays, marking them full-dirty (gpusync auto-resizes the GPU
// side for storages registered with AutoResize).
func (s *Store) refreshGPUSources() {
	s.gpu.UpdateSource(s.worldMatrixBufferName(), floatBytes(s.worldMatrices))
	s.gpu.UpdateSource(s.colorBufferName(), floatBytes(s.colors))
	for _, name := range s.customOrder {
		if f := s.custom[name]; f.gpuSync {
			s.gpu.UpdateSource(s.customBufferName(name), floatBytes(f.data))
		}
	}
}

// InitializeGPU late-binds device, creating GPU buffers for the
// world-matrix, color, and mirrored custom-field storages.
func (s *Store) InitializeGPU(device gpusync.Device) error {
	if s.gpu == nil {
		return fmt.Errorf("renderstore: GPU sync disabled for store %q", s.label)
	}
	return s.gpu.Initialize(device)
}

// SyncToGPU uploads every dirty storage, returning the count synced.
func (s *Store) SyncToGPU() (int, error) {
	if s.gpu == nil {
		return 0, nil
	}
	return s.gpu.SyncAll()
}

// GPUSync exposes the underlying sync layer for buffer lookups
// (binding the world-matrix buffer into a render pass) and stats.
func (s *Store) GPUSync() *gpusync.Sync {
	return s.gpu
}
