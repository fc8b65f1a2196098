package window

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial window size.
//
// Parameters:
//   - width, height: initial size in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
		w.height = height
	}
}

// WithMinSize bounds how small the user can resize the window. Zero leaves a
// side unbounded.
//
// Parameters:
//   - width, height: minimum size in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMinSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth = width
		w.minHeight = height
	}
}

// WithMaxSize bounds how large the user can resize the window. Zero leaves a
// side unbounded.
//
// Parameters:
//   - width, height: maximum size in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMaxSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.maxWidth = width
		w.maxHeight = height
	}
}

// WithFixedSize makes the window non-resizable.
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithFixedSize() WindowBuilderOption {
	return func(w *engineWindow) {
		w.resizable = false
	}
}

// WithoutEscapeClose disables closing the window on the Escape key.
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithoutEscapeClose() WindowBuilderOption {
	return func(w *engineWindow) {
		w.closeOnEscape = false
	}
}
