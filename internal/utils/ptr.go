package utils

func Ptr[T any](v T) *T {
	return &v
}

// OrZero dereferences, treating nil as the zero value.
func OrZero[T comparable](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}
