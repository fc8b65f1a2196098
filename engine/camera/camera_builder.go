package camera

// CameraBuilderOption defines a functional option for configuring a Camera
// during construction.
type CameraBuilderOption func(*cameraImpl)

// WithPosition sets the initial world position.
//
// Parameters:
//   - x, y: the world position
//
// Returns:
//   - CameraBuilderOption: the configured option
func WithPosition(x, y float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.x = x
		c.y = y
	}
}

// WithZoom sets the initial zoom factor. Non-positive values are ignored.
//
// Parameters:
//   - zoom: the zoom factor
//
// Returns:
//   - CameraBuilderOption: the configured option
func WithZoom(zoom float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if zoom > 0 {
			c.zoom = zoom
		}
	}
}

// WithRotation sets the initial view rotation in radians.
//
// Parameters:
//   - radians: the rotation
//
// Returns:
//   - CameraBuilderOption: the configured option
func WithRotation(radians float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.rotation = radians
	}
}

// WithViewport sets the initial viewport size in pixels.
//
// Parameters:
//   - width, height: the viewport size
//
// Returns:
//   - CameraBuilderOption: the configured option
func WithViewport(width, height float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.viewportW = width
		c.viewportH = height
	}
}

// WithController attaches a CameraController at construction.
//
// Parameters:
//   - ctrl: the controller to attach
//
// Returns:
//   - CameraBuilderOption: the configured option
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
		c.x, c.y = ctrl.Position()
	}
}
