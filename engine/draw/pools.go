package draw

// poolManager holds the free lists of every container the frame path borrows
// and returns: layers, draw calls, vertex and index slices, and binding-set
// snapshots. It is owned by the draw context and threaded into the components
// that recycle containers; after a few frames of warm-up a steady-state frame
// borrows everything from here and allocates nothing.
type poolManager struct {
	passes   []*renderPass
	layers   []*renderLayer
	calls    []*drawCall
	vertices [][]Vertex
	indices  [][]uint32
	bindings []*bindingSet
}

func (p *poolManager) borrowPass() *renderPass {
	if n := len(p.passes); n > 0 {
		pass := p.passes[n-1]
		p.passes = p.passes[:n-1]
		return pass
	}
	return &renderPass{}
}

func (p *poolManager) returnPass(pass *renderPass) {
	pass.target = nil
	pass.layers = pass.layers[:0]
	p.passes = append(p.passes, pass)
}

func (p *poolManager) borrowLayer() *renderLayer {
	if n := len(p.layers); n > 0 {
		l := p.layers[n-1]
		p.layers = p.layers[:n-1]
		return l
	}
	l := &renderLayer{}
	l.pendingVertices = p.borrowVertices()
	l.pendingIndices = p.borrowIndices()
	return l
}

func (p *poolManager) returnLayer(l *renderLayer) {
	l.shader = nil
	l.texture = nil
	l.bindings.clear()
	l.pendingVertices = l.pendingVertices[:0]
	l.pendingIndices = l.pendingIndices[:0]
	l.calls = l.calls[:0]
	p.layers = append(p.layers, l)
}

func (p *poolManager) borrowCall() *drawCall {
	if n := len(p.calls); n > 0 {
		c := p.calls[n-1]
		p.calls = p.calls[:n-1]
		return c
	}
	return &drawCall{}
}

func (p *poolManager) returnCall(c *drawCall) {
	if c.bindings != nil {
		p.returnBindingSet(c.bindings)
	}
	*c = drawCall{}
	p.calls = append(p.calls, c)
}

func (p *poolManager) borrowVertices() []Vertex {
	if n := len(p.vertices); n > 0 {
		v := p.vertices[n-1]
		p.vertices = p.vertices[:n-1]
		return v[:0]
	}
	return make([]Vertex, 0, 256)
}

func (p *poolManager) borrowIndices() []uint32 {
	if n := len(p.indices); n > 0 {
		ix := p.indices[n-1]
		p.indices = p.indices[:n-1]
		return ix[:0]
	}
	return make([]uint32, 0, 384)
}

func (p *poolManager) borrowBindingSet() *bindingSet {
	if n := len(p.bindings); n > 0 {
		b := p.bindings[n-1]
		p.bindings = p.bindings[:n-1]
		return b
	}
	return &bindingSet{}
}

func (p *poolManager) returnBindingSet(b *bindingSet) {
	b.clear()
	p.bindings = append(p.bindings, b)
}
