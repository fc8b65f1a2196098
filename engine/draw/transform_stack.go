package draw

import (
	"github.com/feyworks/polywog/common"
)

// transformStack holds the current 2D transform and the saved transforms
// below it. It is owned exclusively by the draw context and reset to identity
// at the start of every frame.
type transformStack struct {
	current common.Affine
	saved   []common.Affine
}

func newTransformStack() *transformStack {
	return &transformStack{current: common.AffineIdentity()}
}

// push saves the current transform and composes m inside it, so geometry
// drawn afterwards is expressed in the local space m defines.
func (s *transformStack) push(m common.Affine) {
	s.saved = append(s.saved, s.current)
	s.current = s.current.Mul(m)
}

// pushNew saves the current transform and replaces it with m outright, with
// no composition. Used for camera resets.
func (s *transformStack) pushNew(m common.Affine) {
	s.saved = append(s.saved, s.current)
	s.current = m
}

// pop restores the most recently saved transform.
func (s *transformStack) pop() error {
	if len(s.saved) == 0 {
		return ErrTransformStackUnderflow
	}
	s.current = s.saved[len(s.saved)-1]
	s.saved = s.saved[:len(s.saved)-1]
	return nil
}

// popN pops n times, stopping at the first failure.
func (s *transformStack) popN(n int) error {
	for i := 0; i < n; i++ {
		if err := s.pop(); err != nil {
			return err
		}
	}
	return nil
}

// reset discards all saved transforms and restores identity. The backing
// array is kept for reuse.
func (s *transformStack) reset() {
	s.current = common.AffineIdentity()
	s.saved = s.saved[:0]
}
