package draw

import (
	"fmt"
	"math/bits"

	"github.com/feyworks/polywog/engine/renderer"
)

// minBufferClass is the smallest buffer capacity handed out, in bytes.
// Requests below it round up so tiny flushes still land in a reusable class.
const minBufferClass = 1 << 10

// bufferSizeClass rounds n up to the next power of two, clamped to the
// minimum class. Buffers are created at class capacity so a pair fitted for
// one flush fits every later flush of the same class.
func bufferSizeClass(n uint64) uint64 {
	if n <= minBufferClass {
		return minBufferClass
	}
	return 1 << bits.Len64(n-1)
}

// bufferPair is one vertex/index buffer pair handed out together. The pair
// stays at its creation capacity for its whole life.
type bufferPair struct {
	vertex renderer.Buffer
	index  renderer.Buffer
	class  bufferClassKey
}

type bufferClassKey struct {
	vertexCap uint64
	indexCap  uint64
}

// bufferCache hands out pooled GPU vertex/index buffer pairs by capacity
// class. Pairs in flight for the current frame are reclaimed by reset at the
// start of the next one; the pool only grows, never shrinks.
type bufferCache struct {
	backend  renderer.Backend
	stats    *FrameStats
	free     map[bufferClassKey][]*bufferPair
	inFlight []*bufferPair
}

func newBufferCache(backend renderer.Backend, stats *FrameStats) *bufferCache {
	return &bufferCache{
		backend: backend,
		stats:   stats,
		free:    make(map[bufferClassKey][]*bufferPair),
	}
}

// request returns a pair with capacity covering both uploads, drawn from the
// free lists when a matching class is available, and uploads the data.
// Creation failure is fatal for the frame and surfaces as an error.
func (c *bufferCache) request(vertexData, indexData []byte) (*bufferPair, error) {
	key := bufferClassKey{
		vertexCap: bufferSizeClass(uint64(len(vertexData))),
		indexCap:  bufferSizeClass(uint64(len(indexData))),
	}

	var pair *bufferPair
	if list := c.free[key]; len(list) > 0 {
		pair = list[len(list)-1]
		c.free[key] = list[:len(list)-1]
	} else {
		vertex, err := c.backend.CreateBuffer("batch-vertex", key.vertexCap, renderer.BufferVertex)
		if err != nil {
			return nil, fmt.Errorf("failed to create vertex buffer: %w", err)
		}
		index, err := c.backend.CreateBuffer("batch-index", key.indexCap, renderer.BufferIndex)
		if err != nil {
			vertex.Release()
			return nil, fmt.Errorf("failed to create index buffer: %w", err)
		}
		pair = &bufferPair{vertex: vertex, index: index, class: key}
		c.stats.BuffersCreated++
	}

	pair.vertex.Upload(vertexData)
	pair.index.Upload(indexData)
	c.inFlight = append(c.inFlight, pair)
	return pair, nil
}

// reset returns every in-flight pair to its class free list. Called at the
// start of a frame, once the previous frame's submission is no longer
// referenced CPU-side.
func (c *bufferCache) reset() {
	for _, pair := range c.inFlight {
		c.free[pair.class] = append(c.free[pair.class], pair)
	}
	c.inFlight = c.inFlight[:0]
}

// size reports the total number of pairs the cache owns.
func (c *bufferCache) size() int {
	n := len(c.inFlight)
	for _, list := range c.free {
		n += len(list)
	}
	return n
}
