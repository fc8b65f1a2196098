package camera

import (
	"math"
	"sync"
)

// CameraController drives a camera's position over time. Implementations are
// advanced once per frame by Camera.Update.
type CameraController interface {
	// Position returns the controller's current world position.
	//
	// Returns:
	//   - x, y: the world position
	Position() (x, y float32)

	// Update advances the controller.
	//
	// Parameters:
	//   - dt: seconds since the previous update
	Update(dt float32)
}

type followControllerImpl struct {
	mu *sync.Mutex

	x, y      float32
	targetFn  func() (float32, float32)
	smoothing float32
}

// FollowController defines a controller that eases the camera toward a moving
// target, such as the player entity.
type FollowController interface {
	CameraController

	// SetTarget replaces the function the controller follows.
	//
	// Parameters:
	//   - target: returns the world position to follow
	SetTarget(target func() (x, y float32))

	// SetSmoothing sets the easing rate. Higher values follow more tightly;
	// zero snaps to the target.
	//
	// Parameters:
	//   - smoothing: the easing rate per second
	SetSmoothing(smoothing float32)
}

var _ FollowController = &followControllerImpl{}

// NewFollowController creates a controller that eases toward the position
// returned by target.
//
// Parameters:
//   - target: returns the world position to follow
//   - smoothing: the easing rate per second; zero snaps
//
// Returns:
//   - FollowController: the newly created controller
func NewFollowController(target func() (x, y float32), smoothing float32) FollowController {
	x, y := target()
	return &followControllerImpl{
		mu:        &sync.Mutex{},
		x:         x,
		y:         y,
		targetFn:  target,
		smoothing: smoothing,
	}
}

func (f *followControllerImpl) Position() (x, y float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.x, f.y
}

func (f *followControllerImpl) Update(dt float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ty := f.targetFn()
	if f.smoothing <= 0 {
		f.x, f.y = tx, ty
		return
	}
	// Exponential ease, frame-rate independent.
	t := 1 - float32(math.Exp(float64(-f.smoothing*dt)))
	f.x += (tx - f.x) * t
	f.y += (ty - f.y) * t
}

func (f *followControllerImpl) SetTarget(target func() (x, y float32)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targetFn = target
}

func (f *followControllerImpl) SetSmoothing(smoothing float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.smoothing = smoothing
}
