package draw

import (
	"fmt"

	"github.com/feyworks/polywog/engine/renderer"
	"github.com/feyworks/polywog/engine/renderer/shader"
)

type pipelineKey struct {
	topology renderer.Topology
	format   renderer.TextureFormat
	blend    renderer.BlendMode
}

// pipelineCache holds the compiled pipelines for one shader, keyed by the
// fixed-function state a draw call can vary. The key space is small and
// bounded, so entries live for the shader's lifetime and are never pruned.
type pipelineCache struct {
	backend   renderer.Backend
	stats     *FrameStats
	shader    shader.Shader
	pipelines map[pipelineKey]renderer.Pipeline
}

func newPipelineCache(backend renderer.Backend, stats *FrameStats, sh shader.Shader) *pipelineCache {
	return &pipelineCache{
		backend:   backend,
		stats:     stats,
		shader:    sh,
		pipelines: make(map[pipelineKey]renderer.Pipeline),
	}
}

// request returns the pipeline for the given fixed-function state, compiling
// and caching it on first use. Compilation failure is fatal for the frame.
func (c *pipelineCache) request(topology renderer.Topology, format renderer.TextureFormat, blend renderer.BlendMode) (renderer.Pipeline, error) {
	key := pipelineKey{topology: topology, format: format, blend: blend}
	if p, ok := c.pipelines[key]; ok {
		return p, nil
	}

	p, err := c.backend.CompileRenderPipeline(renderer.PipelineDescriptor{
		Label:              c.shader.Key(),
		ShaderSource:       c.shader.Source(),
		VertexEntryPoint:   c.shader.VertexEntryPoint(),
		FragmentEntryPoint: c.shader.FragmentEntryPoint(),
		VertexLayout:       VertexLayout2D(),
		Topology:           topology,
		Format:             format,
		Blend:              blend,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile pipeline for shader %s: %w", c.shader.Key(), err)
	}
	c.pipelines[key] = p
	c.stats.PipelinesCompiled++
	return p, nil
}

// release frees every compiled pipeline. Called on context shutdown only.
func (c *pipelineCache) release() {
	for key, p := range c.pipelines {
		p.Release()
		delete(c.pipelines, key)
	}
}
