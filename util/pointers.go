package util

// Ptr returns a pointer to the given value.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the value pointed to by p, or the zero value if p is nil.
func Deref[T any](p *T) T {
	if p != nil {
		return *p
	}
	var zero T
	return zero
}

// Coalesce returns the overlay pointer when it is set, otherwise base.
func Coalesce[T any](base, overlay *T) *T {
	if overlay != nil {
		return overlay
	}
	return base
}
