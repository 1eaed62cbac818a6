package gpusync

import "github.com/cogentcore/webgpu/wgpu"

// WebGPUDevice adapts a wgpu device/queue pair to the Device trait:
// buffers are created up front and uploaded through queue writes.
type WebGPUDevice struct {
	device *wgpu.Device
	queue  *wgpu.Queue
}

// NewWebGPUDevice wraps device and queue.
func NewWebGPUDevice(device *wgpu.Device, queue *wgpu.Queue) *WebGPUDevice {
	return &WebGPUDevice{device: device, queue: queue}
}

// CreateBuffer creates a wgpu buffer sized and flagged per desc. The
// usage bitfield passes through bit-exact: the Usage constants share
// wgpu's values, with CopyDst always added since Sync uploads via
// queue.WriteBuffer.
func (d *WebGPUDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             desc.Size,
		Usage:            wgpu.BufferUsage(desc.Usage) | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	return &webgpuBuffer{buf: buf, queue: d.queue}, nil
}

type webgpuBuffer struct {
	buf   *wgpu.Buffer
	queue *wgpu.Queue
}

// Update uploads data at offset. wgpu's queue.WriteBuffer copies data
// internally before returning, so the caller's slice may be reused
// immediately.
func (b *webgpuBuffer) Update(data []byte, offset uint64) {
	b.queue.WriteBuffer(b.buf, offset, data)
}

func (b *webgpuBuffer) Destroy() {
	b.buf.Release()
}
