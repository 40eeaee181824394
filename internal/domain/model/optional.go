package model

// Optional carries a value that a page may or may not present.
// The zero value is Absent.
type Optional[T any] struct {
	value T
	found bool
}

func Found[T any](v T) Optional[T] {
	return Optional[T]{value: v, found: true}
}

func Absent[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it was found.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.found
}

func (o Optional[T]) IsFound() bool {
	return o.found
}

// OrElse returns the value when found and def otherwise.
func (o Optional[T]) OrElse(def T) T {
	if o.found {
		return o.value
	}
	return def
}
