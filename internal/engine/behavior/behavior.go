// Package behavior provides per-frame node controllers.
package behavior

// Behavior is updated once per frame before drawing.
type Behavior interface {
	Update(dt float32)
}

// List updates behaviors in insertion order.
type List struct {
	items []Behavior
}

// Add appends b.
func (l *List) Add(b Behavior) {
	l.items = append(l.items, b)
}

// Len returns the number of behaviors.
func (l *List) Len() int { return len(l.items) }

// Update calls Update on every behavior.
func (l *List) Update(dt float32) {
	for _, b := range l.items {
		b.Update(dt)
	}
}

// Clear removes every behavior.
func (l *List) Clear() {
	l.items = nil
}
