package vhc

// Display titles for the discrete 1-5 condition scale. Only these five
// points are ever mapped; any other value passes through untouched, so a
// tread-depth reading of 2.5 is never mistaken for a scale point.
var scaleTitles = map[float64]string{
	1: "Critical/Unsafe",
	2: "Needs Attention",
	3: "Acceptable",
	4: "Good Condition",
	5: "Optimal/Like New",
}

var scaleValues = func() map[string]float64 {
	m := make(map[string]float64, len(scaleTitles))
	for v, t := range scaleTitles {
		m[t] = v
	}
	return m
}()

// ToTitle converts a 1-5 scale number to its display title. Values outside
// the scale (and non-numbers) are returned unchanged.
func ToTitle(v Value) Value {
	if n, ok := v.Number(); ok {
		if title, ok := scaleTitles[n]; ok {
			return Str(title)
		}
	}
	return v
}

// ToValue is the inverse of ToTitle: an exact title match becomes its
// numeric code, everything else passes through unchanged.
func ToValue(v Value) Value {
	if s, ok := v.Text(); ok {
		if n, ok := scaleValues[s]; ok {
			return Num(n)
		}
	}
	return v
}

// ConvertAnswersForStorage returns a new answer list with every value run
// through ToValue, preserving item ids, notes, and photos. The input list
// and its elements are never mutated.
func ConvertAnswersForStorage(answers []Answer) []Answer {
	out := make([]Answer, len(answers))
	for i, a := range answers {
		conv := a
		if a.Value != nil {
			v := ToValue(*a.Value)
			conv.Value = &v
		}
		out[i] = conv
	}
	return out
}
