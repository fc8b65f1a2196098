package draw

import (
	"fmt"

	"github.com/feyworks/polywog/common"
	"github.com/feyworks/polywog/engine/graphics"
	"github.com/feyworks/polywog/engine/renderer"
	"github.com/feyworks/polywog/engine/renderer/shader"
)

// bindGroupObject is one realized backend bind group together with the
// uniform buffers backing it, keyed by binding index. Uniform values are
// rewritten in place when the object is reused.
type bindGroupObject struct {
	group    renderer.BindGroup
	uniforms map[uint32]renderer.Buffer
}

func (o *bindGroupObject) release() {
	if o.group != nil {
		o.group.Release()
	}
	for _, b := range o.uniforms {
		b.Release()
	}
}

// bindGroupKeyEntry is the cache slot for one texture/sampler fingerprint:
// the textures the fingerprint references plus the realized objects, split
// into those free for reuse and those handed out this frame.
type bindGroupKeyEntry struct {
	textures []*graphics.Texture
	free     []*bindGroupObject
	used     []*bindGroupObject
}

// textureRetain is the cache's single shared retain on a texture, reference
// counted across the key entries that fingerprint it. Holding one retain per
// texture (not per entry) is what makes "strong count == 1" mean the cache is
// the sole owner.
type textureRetain struct {
	texture *graphics.Texture
	entries int
}

// bindGroupCache holds the realized resource-binding objects for one shader,
// keyed by the identity of the bound textures and the sampler descriptor
// values. Uniform values are deliberately not part of the key: a reused
// object's uniform buffers are rewritten in place instead, which the backend
// supports via queued buffer writes.
//
// Objects handed out during a frame move to the key's used list; when the
// frame counter advances, reset flips them back to the free lists and drops
// every key whose textures are by then solely owned by the cache.
type bindGroupCache struct {
	backend  renderer.Backend
	stats    *FrameStats
	entries  map[string]*bindGroupKeyEntry
	retained map[uint64]*textureRetain
	samplers map[common.SamplerDescriptor]renderer.Sampler

	lastFrame uint64

	keyScratch     []byte
	uniformScratch []byte
}

func newBindGroupCache(backend renderer.Backend, stats *FrameStats) *bindGroupCache {
	return &bindGroupCache{
		backend:  backend,
		stats:    stats,
		entries:  make(map[string]*bindGroupKeyEntry),
		retained: make(map[uint64]*textureRetain),
		samplers: make(map[common.SamplerDescriptor]renderer.Sampler),
	}
}

// request resolves a bind group for the given binding state. When frame has
// advanced since the previous call the cache is reset first. A key hit with a
// free object rewrites its uniform buffers in place and returns it without
// touching the backend's creation paths; a miss realizes a new object.
func (c *bindGroupCache) request(bindings *bindingSet, frame uint64) (renderer.BindGroup, error) {
	if frame != c.lastFrame {
		c.reset()
		c.lastFrame = frame
	}

	c.keyScratch = bindings.fingerprint(c.keyScratch[:0])
	key := string(c.keyScratch)

	entry := c.entries[key]
	if entry != nil && len(entry.free) > 0 {
		obj := entry.free[len(entry.free)-1]
		entry.free = entry.free[:len(entry.free)-1]
		c.writeUniforms(obj, bindings)
		entry.used = append(entry.used, obj)
		c.stats.BindGroupHits++
		return obj.group, nil
	}

	obj, err := c.realize(bindings)
	if err != nil {
		return nil, err
	}

	if entry == nil {
		entry = &bindGroupKeyEntry{}
		for i, p := range bindings.shader.Params() {
			if p.Kind == shader.ParamTexture {
				t := bindings.values[i].texture
				entry.textures = append(entry.textures, t)
				c.retainTexture(t)
			}
		}
		c.entries[key] = entry
	}
	entry.used = append(entry.used, obj)
	c.stats.BindGroupMisses++
	return obj.group, nil
}

// reset flips every object handed out last frame back to its free list, then
// prunes each key whose referenced textures the cache alone keeps alive.
func (c *bindGroupCache) reset() {
	for key, entry := range c.entries {
		entry.free = append(entry.free, entry.used...)
		entry.used = entry.used[:0]

		if !c.soleOwner(entry) {
			continue
		}
		for _, obj := range entry.free {
			obj.release()
		}
		for _, t := range entry.textures {
			c.releaseTexture(t)
		}
		delete(c.entries, key)
	}
}

// soleOwner reports whether every texture the entry references has no owner
// left besides the cache's shared retain.
func (c *bindGroupCache) soleOwner(entry *bindGroupKeyEntry) bool {
	if len(entry.textures) == 0 {
		return false
	}
	for _, t := range entry.textures {
		if t.StrongCount() != 1 {
			return false
		}
	}
	return true
}

func (c *bindGroupCache) retainTexture(t *graphics.Texture) {
	r, ok := c.retained[t.ID()]
	if !ok {
		r = &textureRetain{texture: t.Retain()}
		c.retained[t.ID()] = r
	}
	r.entries++
}

func (c *bindGroupCache) releaseTexture(t *graphics.Texture) {
	r, ok := c.retained[t.ID()]
	if !ok {
		return
	}
	r.entries--
	if r.entries == 0 {
		delete(c.retained, t.ID())
		r.texture.Release()
	}
}

// realize creates fresh uniform buffers and a backend bind group from the
// binding state.
func (c *bindGroupCache) realize(bindings *bindingSet) (*bindGroupObject, error) {
	obj := &bindGroupObject{uniforms: make(map[uint32]renderer.Buffer)}

	desc := renderer.BindGroupDescriptor{Label: bindings.shader.Key()}
	for i, p := range bindings.shader.Params() {
		v := bindings.values[i]
		switch p.Kind {
		case shader.ParamTexture:
			desc.Entries = append(desc.Entries, renderer.BindGroupEntry{
				Binding: p.Binding,
				Texture: v.texture.Resource(),
			})
		case shader.ParamSampler:
			s, err := c.sampler(v.sampler)
			if err != nil {
				obj.release()
				return nil, err
			}
			desc.Entries = append(desc.Entries, renderer.BindGroupEntry{
				Binding: p.Binding,
				Sampler: s,
			})
		case shader.ParamUniform:
			buf, err := c.backend.CreateBuffer(p.Name, p.Uniform.ByteSize(), renderer.BufferUniform)
			if err != nil {
				obj.release()
				return nil, fmt.Errorf("failed to create uniform buffer %s: %w", p.Name, err)
			}
			c.uniformScratch = v.encodeUniform(c.uniformScratch[:0])
			buf.Upload(c.uniformScratch)
			obj.uniforms[p.Binding] = buf
			desc.Entries = append(desc.Entries, renderer.BindGroupEntry{
				Binding: p.Binding,
				Buffer:  buf,
			})
		}
	}

	group, err := c.backend.CreateBindGroup(desc)
	if err != nil {
		obj.release()
		return nil, fmt.Errorf("failed to create bind group for shader %s: %w", bindings.shader.Key(), err)
	}
	obj.group = group
	return obj, nil
}

// writeUniforms rewrites a reused object's uniform buffers in place with the
// current values.
func (c *bindGroupCache) writeUniforms(obj *bindGroupObject, bindings *bindingSet) {
	for i, p := range bindings.shader.Params() {
		if p.Kind != shader.ParamUniform {
			continue
		}
		c.uniformScratch = bindings.values[i].encodeUniform(c.uniformScratch[:0])
		obj.uniforms[p.Binding].Upload(c.uniformScratch)
	}
}

// releaseAll frees every cached object, retained texture, and sampler.
// Called on context shutdown only.
func (c *bindGroupCache) releaseAll() {
	for key, entry := range c.entries {
		for _, obj := range entry.free {
			obj.release()
		}
		for _, obj := range entry.used {
			obj.release()
		}
		for _, t := range entry.textures {
			c.releaseTexture(t)
		}
		delete(c.entries, key)
	}
	for desc, s := range c.samplers {
		s.Release()
		delete(c.samplers, desc)
	}
}

// sampler returns the backend sampler for a descriptor, creating and caching
// it on first use. Sampler objects are tiny and never freed before shutdown.
func (c *bindGroupCache) sampler(desc common.SamplerDescriptor) (renderer.Sampler, error) {
	if s, ok := c.samplers[desc]; ok {
		return s, nil
	}
	s, err := c.backend.CreateSampler(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}
	c.samplers[desc] = s
	return s, nil
}
