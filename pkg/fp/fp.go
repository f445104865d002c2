// Package fp provides basic generic functional style helpers.
package fp

// Uniq will return a unique list of values from the input list, preserving the
// order of first occurrence.
func Uniq[T comparable](input []T) []T {
	var output []T
	if len(input) == 0 {
		return output
	}

	output = append(output, input[0])

	for _, value := range input {
		found := false

		for _, known := range output {
			if value == known {
				found = true

				break
			}
		}

		if !found {
			output = append(output, value)
		}
	}

	return output
}

func Contains[T comparable](input []T, value T) bool {
	for _, child := range input {
		if child == value {
			return true
		}
	}

	return false
}
