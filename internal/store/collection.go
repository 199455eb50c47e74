package store

// entity is anything a collection can key by id.
type entity interface {
	EntityID() string
}

// collection is an ordered list of entities keyed by id. It is not safe for
// concurrent use; stores guard it with their mutex.
type collection[T entity] struct {
	items []T
	clone func(T) T
}

func newCollection[T entity](clone func(T) T) collection[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return collection[T]{clone: clone}
}

// replaceAll makes items the whole collection.
func (c *collection[T]) replaceAll(items []T) {
	next := make([]T, len(items))
	for i, item := range items {
		next[i] = c.clone(item)
	}
	c.items = next
}

func (c *collection[T]) append(item T) {
	c.items = append(c.items, c.clone(item))
}

// replace swaps the entity with the same id in place. It reports false and
// leaves the collection untouched when the id is not present.
func (c *collection[T]) replace(item T) bool {
	idx := c.index(item.EntityID())
	if idx < 0 {
		return false
	}
	c.items[idx] = c.clone(item)
	return true
}

// remove drops every entity with id and reports whether any was present.
func (c *collection[T]) remove(id string) bool {
	return c.removeWhere(func(item T) bool { return item.EntityID() == id }) > 0
}

func (c *collection[T]) removeWhere(match func(T) bool) int {
	kept := c.items[:0]
	removed := 0
	for _, item := range c.items {
		if match(item) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	var zero T
	for i := len(kept); i < len(c.items); i++ {
		c.items[i] = zero
	}
	c.items = kept
	return removed
}

func (c *collection[T]) index(id string) int {
	for i, item := range c.items {
		if item.EntityID() == id {
			return i
		}
	}
	return -1
}

func (c *collection[T]) find(id string) (T, bool) {
	if idx := c.index(id); idx >= 0 {
		return c.clone(c.items[idx]), true
	}
	var zero T
	return zero, false
}

// snapshot returns a copy that shares no memory with the collection.
func (c *collection[T]) snapshot() []T {
	out := make([]T, len(c.items))
	for i, item := range c.items {
		out[i] = c.clone(item)
	}
	return out
}

func (c *collection[T]) len() int {
	return len(c.items)
}
