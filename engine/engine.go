package engine

import (
	"log"
	"sync"
	"time"

	"github.com/feyworks/polywog/engine/camera"
	"github.com/feyworks/polywog/engine/draw"
	"github.com/feyworks/polywog/engine/profiler"
	"github.com/feyworks/polywog/engine/renderer"
	"github.com/feyworks/polywog/engine/window"
)

// engine implements the Engine interface.
// Coordinates the fixed-rate tick loop, the render loop, and the window.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window  window.Window
	backend renderer.Backend
	ctx     draw.DrawContext
	camera  camera.Camera

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32, ctx draw.DrawContext)

	frameCounter uint64
	lastRender   time.Time

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point. It owns the window, the graphics backend,
// the draw context, and the camera, and runs the two loops: a fixed-rate tick
// for game logic in its own goroutine, and the render loop on the window's
// OS thread, which the graphics backend requires.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Draw returns the drawing surface. Use it only inside the render
	// callback; the frame lifecycle belongs to the engine.
	//
	// Returns:
	//   - draw.DrawContext: the drawing surface
	Draw() draw.DrawContext

	// Camera returns the engine's 2D camera. Its view matrix is applied to
	// layer 0 at the start of every frame.
	//
	// Returns:
	//   - camera.Camera: the camera instance
	Camera() camera.Camera

	// Backend returns the graphics backend, for creating textures and
	// offscreen surfaces.
	//
	// Returns:
	//   - renderer.Backend: the graphics backend
	Backend() renderer.Backend

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic, physics, input processing, and animation
	// updates. Runs off the render thread; do not draw from it.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called each render frame,
	// between BeginFrame and EndFrame. All drawing happens here.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds and the drawing surface
	SetRenderCallback(callback func(deltaTime float32, ctx draw.DrawContext))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the main engine loop (blocks until the window closes).
	Run()

	// Quit signals the engine to stop and shuts it down.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Creates the window, the graphics backend over its surface, the draw
// context, and a camera sized to the window.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		e.window = window.NewWindow()
	}
	if e.backend == nil {
		e.backend = renderer.NewWGPUBackend(e.window.SurfaceDescriptor(), renderer.WithVSync())
	}
	e.backend.ConfigureSurface(e.window.Width(), e.window.Height())

	if e.ctx == nil {
		ctx, err := draw.NewDrawContext(e.backend)
		if err != nil {
			panic(err)
		}
		e.ctx = ctx
	}
	if e.camera == nil {
		e.camera = camera.NewCamera(
			camera.WithViewport(float32(e.window.Width()), float32(e.window.Height())),
		)
	}

	e.window.SetResizeCallback(func(width, height int) {
		e.backend.ConfigureSurface(width, height)
		e.camera.SetViewport(float32(width), float32(height))
	})

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Draw() draw.DrawContext {
	return e.ctx
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Backend() renderer.Backend {
	return e.backend
}

func (e *engine) Run() {
	e.running = true
	e.handle()
	e.lastRender = time.Now()
	e.window.SetUpdateCallback(e.renderFrame)
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
}

// Quit signals the engine to stop and shuts it down.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
	_ = e.window.Close()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the tick and quit goroutines. Rendering stays on the
// calling thread; the backend is bound to it.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleTick()
	go e.handleQuit()
}

// handleTick runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic
// rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleTick() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// renderFrame runs one frame of the render loop on the window thread:
// advance the camera, open the frame, hand the draw context to the caller,
// then finish and present. A failed frame is logged and skipped; the next
// BeginFrame recovers the pooled state.
func (e *engine) renderFrame() {
	now := time.Now()
	dt := float32(now.Sub(e.lastRender).Seconds())
	e.lastRender = now

	e.camera.Update(dt)

	e.frameCounter++
	e.ctx.BeginFrame(uint32(e.window.Width()), uint32(e.window.Height()))
	e.ctx.SetViewMatrix(e.camera.ViewMatrix())

	if e.renderCallback != nil {
		e.renderCallback(dt, e.ctx)
	}

	if err := e.ctx.EndFrame(e.frameCounter); err != nil {
		log.Printf("frame %d skipped: %v", e.frameCounter, err)
	}

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick(e.ctx.Stats())
	}

	// Frame rate limiting
	if e.renderFrameLimit > 0 {
		elapsed := time.Since(now)
		if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Send to channel for immediate update in running engine loop
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			// Channel has a pending update, drain and send new value
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		// Engine not running, just update the field
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32, ctx draw.DrawContext)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}
