package renderstore

import (
	"github.com/TheBitDrifter/ecsruntime/internal/rlog"
	"github.com/go-gl/mathgl/mgl32"
)

// maxUpdateIterations bounds the hierarchy sweep; a cyclic parent graph
// leaves some dirty flags set rather than spinning forever.
const maxUpdateIterations = 100

// composeLocal builds a column-major TRS matrix for slot from its
// position, rotation quaternion, and scale.
func (s *Store) composeLocal(slot int) mgl32.Mat4 {
	p := s.positions[slot*positionStride:]
	r := s.rotations[slot*rotationStride:]
	sc := s.scales[slot*scaleStride:]
	q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	return mgl32.Translate3D(p[0], p[1], p[2]).
		Mul4(q.Mat4()).
		Mul4(mgl32.Scale3D(sc[0], sc[1], sc[2]))
}

// UpdateWorldMatrices recomputes local and world matrices for every
// dirty slot, parents before children: a dirty slot whose parent is
// also still dirty is deferred to a later sweep, so each world matrix
// composes against an already-updated parent. Returns the number of
// slots updated; on any update the world-matrix storage is marked
// full-dirty for the next GPU sync.
func (s *Store) UpdateWorldMatrices() int {
	updated := 0
	for iter := 0; iter < maxUpdateIterations; iter++ {
		progressed := false
		deferred := false
		for slot := 0; slot < s.highWater; slot++ {
			if s.dirty[slot] == 0 || !s.allocated[slot] {
				continue
			}
			parent := s.parentSlots[slot]
			if parent >= 0 && s.dirty[parent] != 0 && s.allocated[parent] {
				deferred = true
				continue
			}
			local := s.composeLocal(slot)
			copy(s.localMatrices[slot*matrixStride:(slot+1)*matrixStride], local[:])
			world := local
			if parent >= 0 {
				pi := int(parent)
				var parentWorld mgl32.Mat4
				copy(parentWorld[:], s.worldMatrices[pi*matrixStride:(pi+1)*matrixStride])
				world = parentWorld.Mul4(local)
			}
			copy(s.worldMatrices[slot*matrixStride:(slot+1)*matrixStride], world[:])
			s.dirty[slot] = 0
			updated++
			progressed = true
		}
		if !deferred {
			break
		}
		if !progressed {
			rlog.Default.Warnf("renderstore %q: world matrix update stalled, parent graph likely cyclic", s.label)
			break
		}
		if iter == maxUpdateIterations-1 {
			rlog.Default.Warnf("renderstore %q: world matrix update hit iteration bound", s.label)
		}
	}
	if updated > 0 && s.gpu != nil {
		s.gpu.MarkFullDirty(s.worldMatrixBufferName())
	}
	return updated
}
