package utils

func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the value behind p or the zero value.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
