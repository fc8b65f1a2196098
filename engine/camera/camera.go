package camera

import (
	"sync"

	"github.com/feyworks/polywog/common"
)

type cameraImpl struct {
	mu *sync.Mutex

	x, y     float32
	zoom     float32
	rotation float32

	viewportW float32
	viewportH float32

	matrix common.Mat4

	controller CameraController
}

// Camera defines the interface for the 2D camera system. The camera holds a
// world position, zoom, and rotation and produces the view matrix the draw
// context composes with the target's pixel projection. The viewed position is
// centered in the viewport.
type Camera interface {
	// Position returns the world position the camera looks at.
	//
	// Returns:
	//   - x, y: the world position
	Position() (x, y float32)

	// Zoom returns the zoom factor; 1 is pixel-for-pixel.
	//
	// Returns:
	//   - float32: the zoom factor
	Zoom() float32

	// Rotation returns the view rotation in radians.
	//
	// Returns:
	//   - float32: the rotation in radians
	Rotation() float32

	// ViewMatrix returns the current view matrix, recomputed on every state
	// change. Feed it to DrawContext.SetViewMatrix.
	//
	// Returns:
	//   - common.Mat4: the view matrix
	ViewMatrix() common.Mat4

	// Controller returns the attached CameraController, or nil.
	//
	// Returns:
	//   - CameraController: the attached controller or nil
	Controller() CameraController

	// Update advances the attached controller and adopts its position.
	// Call once per frame before drawing. A no-op without a controller.
	//
	// Parameters:
	//   - dt: seconds since the previous update
	Update(dt float32)

	// SetPosition moves the camera to a world position.
	//
	// Parameters:
	//   - x, y: the world position
	SetPosition(x, y float32)

	// SetZoom sets the zoom factor. Non-positive values are ignored.
	//
	// Parameters:
	//   - zoom: the zoom factor
	SetZoom(zoom float32)

	// SetRotation sets the view rotation in radians.
	//
	// Parameters:
	//   - radians: the rotation
	SetRotation(radians float32)

	// SetViewport sets the viewport size used to center the view. Call on
	// resize.
	//
	// Parameters:
	//   - width, height: the viewport size in pixels
	SetViewport(width, height float32)

	// SetController attaches a CameraController.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl CameraController)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new 2D Camera at the origin with zoom 1 and no
// rotation.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:        &sync.Mutex{},
		zoom:      1,
		viewportW: 1,
		viewportH: 1,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrix()
	return c
}

func (c *cameraImpl) Position() (x, y float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.x, c.y
}

func (c *cameraImpl) Zoom() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoom
}

func (c *cameraImpl) Rotation() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotation
}

func (c *cameraImpl) ViewMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matrix
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update(dt float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.controller.Update(dt)
	c.x, c.y = c.controller.Position()
	c.updateMatrix()
}

func (c *cameraImpl) SetPosition(x, y float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.x = x
	c.y = y
	c.updateMatrix()
}

func (c *cameraImpl) SetZoom(zoom float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if zoom <= 0 {
		return
	}
	c.zoom = zoom
	c.updateMatrix()
}

func (c *cameraImpl) SetRotation(radians float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rotation = radians
	c.updateMatrix()
}

func (c *cameraImpl) SetViewport(width, height float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewportW = width
	c.viewportH = height
	c.updateMatrix()
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

// updateMatrix recomputes the view matrix: translate the looked-at point to
// the origin, rotate and zoom around it, then recenter in the viewport.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrix() {
	view := common.Translation(c.viewportW/2, c.viewportH/2).
		Mul(common.Scaling(c.zoom, c.zoom)).
		Mul(common.Rotation(-c.rotation)).
		Mul(common.Translation(-c.x, -c.y))
	c.matrix = common.AffineToMat4(view)
}
