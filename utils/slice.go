package utils

// Filter returns the items of src for which keep is true, in order.
func Filter[T any](src []T, keep func(T) bool) []T {
	dst := make([]T, 0, len(src))
	for _, item := range src {
		if keep(item) {
			dst = append(dst, item)
		}
	}
	return dst
}

func Map[T any, U any](src []T, mapper func(T) U) []U {
	dst := make([]U, 0, len(src))
	for _, item := range src {
		dst = append(dst, mapper(item))
	}
	return dst
}

// Find returns a copy of the first match, or nil.
func Find[T any](items []T, match func(T) bool) *T {
	for _, item := range items {
		if match(item) {
			return &item
		}
	}
	return nil
}
