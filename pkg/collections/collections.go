package collections

// Apply applies the applicator function to each item in the input slice.
// The result is never nil, so it encodes as an empty JSON array.
func Apply[T, V any](items []T, applicator func(T) V) []V {
	result := make([]V, len(items))
	for i, item := range items {
		result[i] = applicator(item)
	}
	return result
}

// Concat joins byte chunks in order into one freshly allocated slice.
func Concat(chunks [][]byte) []byte {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}

	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}

	return out
}
