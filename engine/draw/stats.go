package draw

// FrameStats counts batching and caching activity for one frame. Reset at
// BeginFrame; read it after EndFrame. Fed to the profiler's periodic report.
type FrameStats struct {
	// DrawCalls is the number of indexed draws issued to the backend.
	DrawCalls int
	// Flushes is the number of geometry flushes across all layers.
	Flushes int
	// BindGroupHits counts bind-group requests served by rewriting a cached
	// object's uniforms in place.
	BindGroupHits int
	// BindGroupMisses counts bind-group requests that realized a new backend
	// object.
	BindGroupMisses int
	// BuffersCreated counts new vertex/index buffer pairs; zero once warm.
	BuffersCreated int
	// PipelinesCompiled counts pipeline compilations; zero once warm.
	PipelinesCompiled int
}
