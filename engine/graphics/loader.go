package graphics

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/feyworks/polywog/common"
	"github.com/feyworks/polywog/engine/renderer"
)

// LoadTextures decodes the given image files in parallel and uploads each to
// the GPU, returning the handles keyed by path. Decoding fans out across a
// worker pool; the GPU uploads happen serially on the calling thread, which
// must be the backend's thread. Intended for load screens and startup, not
// the frame loop.
//
// Parameters:
//   - backend: the graphics backend
//   - paths: image file paths (PNG or JPEG)
//
// Returns:
//   - map[string]*Texture: created textures keyed by path
//   - error: the first decode or upload error encountered
func LoadTextures(backend renderer.Backend, paths []string) (map[string]*Texture, error) {
	if len(paths) == 0 {
		return map[string]*Texture{}, nil
	}

	pool := worker.NewDynamicWorkerPool(max(runtime.NumCPU()-1, 1), len(paths), time.Second)

	type decoded struct {
		staging common.TextureStagingData
		err     error
	}
	results := make([]decoded, len(paths))

	// Per-batch barrier sync; pool.Wait blocks until workers idle-exit which
	// is unsuitable here.
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		idx, p := i, path
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				staging, err := common.DecodeImageFile(p)
				results[idx] = decoded{staging: staging, err: err}
				return nil, nil
			},
		})
	}
	wg.Wait()

	textures := make(map[string]*Texture, len(paths))
	for i, path := range paths {
		if results[i].err != nil {
			releaseAll(textures)
			return nil, fmt.Errorf("failed to load texture %s: %w", path, results[i].err)
		}
		tex, err := NewTexture(backend, path, results[i].staging)
		if err != nil {
			releaseAll(textures)
			return nil, err
		}
		textures[path] = tex
	}
	return textures, nil
}

func releaseAll(textures map[string]*Texture) {
	for _, t := range textures {
		t.Release()
	}
}
