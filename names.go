package twmangle

// liveNames allocates on first lookup and records usage immediately.
type liveNames struct {
	b        *Build
	sourceID string
}

func (n liveNames) Lookup(original string) (string, bool) {
	if !n.b.renamable(original) {
		return "", false
	}
	rec := n.b.alloc.Generate(original)
	n.b.tracker.RecordUsage(original, n.sourceID)
	return rec.Name, true
}

func (n liveNames) Observe(original string) {
	if n.b.renamable(original) {
		n.b.tracker.RecordUsage(original, n.sourceID)
	}
}

type nameRef struct {
	original string
	observed bool
}

// collectNames records what a file would look up, in call order, without
// allocating. One per file; adapters call it from a single goroutine.
type collectNames struct {
	b    *Build
	refs []nameRef
}

func (c *collectNames) Lookup(original string) (string, bool) {
	if c.b.renamable(original) {
		c.refs = append(c.refs, nameRef{original: original})
	}
	return "", false
}

func (c *collectNames) Observe(original string) {
	if c.b.renamable(original) {
		c.refs = append(c.refs, nameRef{original: original, observed: true})
	}
}

// frozenNames resolves against names already allocated.
type frozenNames struct {
	b *Build
}

func (n frozenNames) Lookup(original string) (string, bool) {
	if !n.b.renamable(original) {
		return "", false
	}
	return n.b.alloc.Lookup(original)
}

func (frozenNames) Observe(string) {}
