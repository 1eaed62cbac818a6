// Package gpusync maintains a named registry of CPU-backed storages
// mirrored to GPU buffers through a small device trait, with
// dirty-region tracking so a Sync only re-uploads what changed. The
// Device/Buffer interfaces keep wgpu out of the core; webgpudevice.go
// adapts a github.com/cogentcore/webgpu device to the trait.
package gpusync

import (
	"fmt"
	"sort"

	"github.com/TheBitDrifter/ecsruntime/internal/rlog"
)

// Usage is the GPU buffer usage bitfield. Values are stable constants,
// passed bit-exact across the device boundary.
type Usage uint32

const (
	UsageCopySrc Usage = 0x04
	UsageCopyDst Usage = 0x08
	UsageIndex   Usage = 0x10
	UsageVertex  Usage = 0x20
	UsageUniform Usage = 0x40
	UsageStorage Usage = 0x80
)

// Hint tells the device how a buffer will be used, informing its
// allocation strategy.
type Hint int

const (
	HintStatic Hint = iota
	HintDynamic
	HintStream
)

// BufferDescriptor describes a GPU buffer to create.
type BufferDescriptor struct {
	Size  uint64
	Usage Usage
	Hint  Hint
	Label string
}

// Buffer is an opaque GPU buffer handle.
type Buffer interface {
	Update(data []byte, offset uint64)
	Destroy()
}

// Device is the minimal GPU device trait the sync layer depends on.
type Device interface {
	CreateBuffer(desc BufferDescriptor) (Buffer, error)
}

const minBufferSize = 256

// region is a byte range [Offset, Offset+Size) marked dirty.
type region struct {
	Offset uint64
	Size   uint64
}

func (r region) end() uint64 { return r.Offset + r.Size }

// overlapsOrAdjacent reports whether r and o touch or overlap, so they
// can be merged into one region.
func (r region) overlapsOrAdjacent(o region) bool {
	return r.Offset <= o.end() && o.Offset <= r.end()
}

func (r region) union(o region) region {
	start := r.Offset
	if o.Offset < start {
		start = o.Offset
	}
	end := r.end()
	if o.end() > end {
		end = o.end()
	}
	return region{Offset: start, Size: end - start}
}

// Options configure a registered storage.
type Options struct {
	Usage        Usage
	Hint         Hint
	Label        string
	DoubleBuffer bool
	AutoResize   bool
}

// StorageStats reports per-storage sync bookkeeping.
type StorageStats struct {
	Name          string
	Size          uint64
	Version       uint64
	SyncedVersion uint64
	RegionCount   int
	FullDirty     bool
}

type storage struct {
	name    string
	source  []byte
	options Options
	buffer  Buffer

	regions   []region
	fullDirty bool

	version       uint64
	syncedVersion uint64
	everSynced    bool
}

// Sync owns named CPU-to-GPU storages and a late-bound Device to
// create/update their GPU buffers.
type Sync struct {
	device   Device
	storages map[string]*storage
	order    []string
}

// NewSync returns a Sync with no device bound yet; storages registered
// before Initialize are created once a device is provided.
func NewSync() *Sync {
	return &Sync{storages: make(map[string]*storage)}
}

// Initialize late-binds device and creates a GPU buffer for every
// already-registered storage.
func (s *Sync) Initialize(device Device) error {
	s.device = device
	for _, name := range s.order {
		st := s.storages[name]
		if err := s.createBuffer(st); err != nil {
			return err
		}
	}
	return nil
}

func bufferSize(n int) uint64 {
	size := uint64(n)
	if size < minBufferSize {
		size = minBufferSize
	}
	return size
}

func (s *Sync) createBuffer(st *storage) error {
	if s.device == nil {
		return nil
	}
	buf, err := s.device.CreateBuffer(BufferDescriptor{
		Size:  bufferSize(len(st.source)),
		Usage: st.options.Usage,
		Hint:  st.options.Hint,
		Label: st.options.Label,
	})
	if err != nil {
		return fmt.Errorf("ecsruntime/gpusync: create buffer %q: %w", st.name, err)
	}
	st.buffer = buf
	return nil
}

// RegisterStorage registers a named CPU source with the given options.
// Initial dirty state is full.
func (s *Sync) RegisterStorage(name string, cpuSource []byte, opts Options) error {
	if _, exists := s.storages[name]; exists {
		rlog.Default.Warnf("gpusync: storage %q replaced", name)
	} else {
		s.order = append(s.order, name)
	}
	st := &storage{
		name:      name,
		source:    cpuSource,
		options:   opts,
		fullDirty: true,
	}
	s.storages[name] = st
	if s.device != nil {
		return s.createBuffer(st)
	}
	return nil
}

// UnregisterStorage destroys name's GPU resources and forgets it.
func (s *Sync) UnregisterStorage(name string) {
	st, ok := s.storages[name]
	if !ok {
		return
	}
	if st.buffer != nil {
		st.buffer.Destroy()
	}
	delete(s.storages, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// UpdateSource swaps name's CPU source (used when CPU storage grows),
// marks it full-dirty, and auto-resizes the GPU buffer if opted in.
func (s *Sync) UpdateSource(name string, newSource []byte) error {
	st, ok := s.storages[name]
	if !ok {
		return fmt.Errorf("ecsruntime/gpusync: unregistered storage %q", name)
	}
	st.source = newSource
	st.fullDirty = true
	st.regions = nil
	if st.options.AutoResize && s.device != nil && st.buffer != nil {
		grown := uint64(len(newSource)) * 2
		if grown < minBufferSize {
			grown = minBufferSize
		}
		st.buffer.Destroy()
		buf, err := s.device.CreateBuffer(BufferDescriptor{
			Size:  grown,
			Usage: st.options.Usage,
			Hint:  st.options.Hint,
			Label: st.options.Label,
		})
		if err != nil {
			return fmt.Errorf("ecsruntime/gpusync: resize buffer %q: %w", name, err)
		}
		st.buffer = buf
	}
	return nil
}

// MarkDirty adds [offset, offset+size) to name's dirty region list,
// merging with any overlapping/adjacent regions after sorting by
// offset.
func (s *Sync) MarkDirty(name string, offset, size uint64) {
	st, ok := s.storages[name]
	if !ok {
		rlog.Default.Warnf("gpusync: mark_dirty on unregistered storage %q", name)
		return
	}
	if st.fullDirty || size == 0 {
		return
	}
	st.regions = append(st.regions, region{Offset: offset, Size: size})
	st.regions = mergeRegions(st.regions)
	st.version++
}

func mergeRegions(regions []region) []region {
	sort.Slice(regions, func(i, j int) bool { return regions[i].Offset < regions[j].Offset })
	merged := regions[:0:0]
	for _, r := range regions {
		if len(merged) > 0 && merged[len(merged)-1].overlapsOrAdjacent(r) {
			merged[len(merged)-1] = merged[len(merged)-1].union(r)
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// MarkFullDirty discards name's region list, guaranteeing the next
// Sync uploads the whole buffer.
func (s *Sync) MarkFullDirty(name string) {
	st, ok := s.storages[name]
	if !ok {
		rlog.Default.Warnf("gpusync: mark_full_dirty on unregistered storage %q", name)
		return
	}
	st.fullDirty = true
	st.regions = nil
	st.version++
}

// Sync uploads name's dirty state to its GPU buffer, reporting whether
// an upload happened (false is a no-op on a clean storage).
func (s *Sync) Sync(name string) (bool, error) {
	st, ok := s.storages[name]
	if !ok {
		return false, fmt.Errorf("ecsruntime/gpusync: unregistered storage %q", name)
	}
	if st.buffer == nil {
		return false, nil
	}
	if st.everSynced && st.syncedVersion == st.version && !st.fullDirty && len(st.regions) == 0 {
		return false, nil
	}
	if st.fullDirty || !st.everSynced {
		st.buffer.Update(st.source, 0)
		st.fullDirty = false
		st.regions = nil
		st.syncedVersion = st.version
		st.everSynced = true
		return true, nil
	}
	for _, r := range st.regions {
		end := r.end()
		if end > uint64(len(st.source)) {
			end = uint64(len(st.source))
		}
		if r.Offset >= end {
			continue
		}
		st.buffer.Update(st.source[r.Offset:end], r.Offset)
	}
	st.regions = nil
	st.syncedVersion = st.version
	st.everSynced = true
	return true, nil
}

// SyncAll syncs every registered storage, returning the count actually
// uploaded.
func (s *Sync) SyncAll() (int, error) {
	count := 0
	for _, name := range s.order {
		synced, err := s.Sync(name)
		if err != nil {
			return count, err
		}
		if synced {
			count++
		}
	}
	return count, nil
}

// GetBuffer returns name's GPU buffer, if created.
func (s *Sync) GetBuffer(name string) (Buffer, bool) {
	st, ok := s.storages[name]
	if !ok || st.buffer == nil {
		return nil, false
	}
	return st.buffer, true
}

// Stats returns name's sync bookkeeping.
func (s *Sync) Stats(name string) (StorageStats, bool) {
	st, ok := s.storages[name]
	if !ok {
		return StorageStats{}, false
	}
	return StorageStats{
		Name:          st.name,
		Size:          uint64(len(st.source)),
		Version:       st.version,
		SyncedVersion: st.syncedVersion,
		RegionCount:   len(st.regions),
		FullDirty:     st.fullDirty,
	}, true
}

// GlobalStats returns Stats for every registered storage, in
// registration order.
func (s *Sync) GlobalStats() []StorageStats {
	out := make([]StorageStats, 0, len(s.order))
	for _, name := range s.order {
		stats, _ := s.Stats(name)
		out = append(out, stats)
	}
	return out
}

// Destroy destroys every storage's GPU buffer and forgets them all.
func (s *Sync) Destroy() {
	for _, st := range s.storages {
		if st.buffer != nil {
			st.buffer.Destroy()
		}
	}
	s.storages = make(map[string]*storage)
	s.order = nil
}
