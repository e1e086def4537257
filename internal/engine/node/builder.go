package node

// Builder assembles a subtree without recomputing matrices on every attach.
// Finalize walks the subtree once. The importer uses it so a large hierarchy
// costs a single pass instead of one pass per depth level.
type Builder struct {
	attached int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Attach links child under parent without touching any matrix.
func (b *Builder) Attach(parent, child *Node) {
	parent.link(child)
	b.attached++
}

// Attached returns the number of links made since the last Finalize.
func (b *Builder) Attached() int {
	return b.attached
}

// Finalize recomputes every matrix under root.
func (b *Builder) Finalize(root *Node) {
	root.UpdateMatrix()
	b.attached = 0
}
