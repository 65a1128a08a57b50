package pkg

func Filter[T any](items []T, predicate func(T) bool) []T {
	filtered := []T{}
	for _, item := range items {
		if predicate(item) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// Converts a value suspected to be either an int or float64 to an int.
// json decoding gives float64 for every number so this shows up all over.
func NumToInt(num any) int {
	switch num := num.(type) {
	case int:
		return num
	case int64:
		return int(num)
	case float64:
		return int(num)
	}
	f, _ := NumToFloat(num)
	return int(f)
}

// IsWholeNumber reports whether num is numeric with no fractional part.
func IsWholeNumber(num any) bool {
	f, ok := NumToFloat(num)
	return ok && f == float64(int64(f))
}

// NumToFloat is the float64 counterpart of NumToInt. The second return
// value reports whether num was numeric at all.
func NumToFloat(num any) (float64, bool) {
	switch num := num.(type) {
	case float64:
		return num, true
	case float32:
		return float64(num), true
	case int:
		return float64(num), true
	case int8:
		return float64(num), true
	case int16:
		return float64(num), true
	case int32:
		return float64(num), true
	case int64:
		return float64(num), true
	case uint:
		return float64(num), true
	case uint8:
		return float64(num), true
	case uint16:
		return float64(num), true
	case uint32:
		return float64(num), true
	case uint64:
		return float64(num), true
	}
	return 0, false
}
