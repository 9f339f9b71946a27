// Package fn provides small generic slice helpers used across the engine.
package fn

// Map applies f to each element.
func Map[T, U any](items []T, f func(T) U) []U {
	out := make([]U, len(items))
	for i, v := range items {
		out[i] = f(v)
	}
	return out
}

// Filter returns the elements where pred is true.
func Filter[T any](items []T, pred func(T) bool) []T {
	var out []T
	for _, v := range items {
		if pred(v) {
			out = append(out, v)
		}
	}
	return out
}

// FilterMap applies f and keeps results where ok is true.
func FilterMap[T, U any](items []T, f func(T) (U, bool)) []U {
	var out []U
	for _, v := range items {
		if u, ok := f(v); ok {
			out = append(out, u)
		}
	}
	return out
}

// GroupBy groups items by a key function, preserving encounter order
// within each group.
func GroupBy[T any, K comparable](items []T, key func(T) K) map[K][]T {
	out := make(map[K][]T)
	for _, v := range items {
		k := key(v)
		out[k] = append(out[k], v)
	}
	return out
}

// SumBy sums f over items.
func SumBy[T any](items []T, f func(T) float64) float64 {
	var sum float64
	for _, v := range items {
		sum += f(v)
	}
	return sum
}

// CountBy counts the elements where pred is true.
func CountBy[T any](items []T, pred func(T) bool) int {
	n := 0
	for _, v := range items {
		if pred(v) {
			n++
		}
	}
	return n
}
