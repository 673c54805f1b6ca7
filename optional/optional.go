package optional

// Optional holds a value which may or may not have been set. Its zero value
// is an unset Optional.
type Optional[T any] struct {
	value T
	set   bool
}

// Of returns an Optional which holds v.
func Of[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Set stores v and marks the optional as set.
func (o *Optional[T]) Set(v T) {
	o.value = v
	o.set = true
}

// HasValue returns true if a value has been set.
func (o *Optional[T]) HasValue() bool {
	return o.set
}

// Get returns the stored value. It returns the zero value of T when nothing
// has been set, so callers should check HasValue first.
func (o *Optional[T]) Get() T {
	return o.value
}
