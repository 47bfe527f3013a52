package utils

import "iter"

// Map lazily yields fn applied to each element of s.
func Map[S any, T any](s []S, fn func(S) T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range s {
			if !yield(fn(v)) {
				return
			}
		}
	}
}

// Filter lazily yields the elements of s for which keep returns true.
func Filter[S any](s []S, keep func(S) bool) iter.Seq[S] {
	return func(yield func(S) bool) {
		for _, v := range s {
			if keep(v) {
				if !yield(v) {
					return
				}
			}
		}
	}
}
