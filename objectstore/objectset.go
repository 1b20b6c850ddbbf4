// Package objectstore provides a generic, name-keyed object container used
// throughout upnpcore to hold state variables, actions, services and devices.
package objectstore

import "iter"

// Object is anything that can be stored in an ObjectSet, keyed by its Name.
type Object interface {
	Name() string
	TypeID() string
}

// ObjectSet is a name-keyed set of objects of a single concrete type. Lookup
// is case-sensitive; callers that need case-insensitive lookup (SCPD action
// and state-variable names) try Get first and then scan All comparing
// names with case folding (schema's GetFold helpers).
type ObjectSet[T Object] map[string]T

// NewObjectSet returns an empty set ready for use.
func NewObjectSet[T Object]() ObjectSet[T] {
	return make(ObjectSet[T])
}

func (m *ObjectSet[T]) ensure() {
	if *m == nil {
		*m = make(ObjectSet[T])
	}
}

// Insert adds or replaces obj, keyed by obj.Name().
func (m *ObjectSet[T]) Insert(obj T) {
	m.ensure()
	(*m)[obj.Name()] = obj
}

// Contains reports whether an object with the same name is present.
func (m *ObjectSet[T]) Contains(obj T) bool {
	_, ok := (*m)[obj.Name()]
	return ok
}

// Get looks up an object by name.
func (m *ObjectSet[T]) Get(name string) (T, bool) {
	v, ok := (*m)[name]
	return v, ok
}

// Delete removes the object with the given name, if any.
func (m *ObjectSet[T]) Delete(name string) {
	delete(*m, name)
}

// Len returns the number of objects held.
func (m ObjectSet[T]) Len() int {
	return len(m)
}

// All iterates every object in the set. Iteration order is unspecified.
func (m *ObjectSet[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range *m {
			if !yield(v) {
				return
			}
		}
	}
}
