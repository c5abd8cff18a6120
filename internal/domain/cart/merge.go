package cart

// Merge combines the remote and local line sets.
//
// The result is seeded with the remote lines in remote order. Each local line whose
// key is absent is appended in local order; when both sides hold a key the copy with
// the larger quantity wins and equal quantities keep the remote copy.
// Deletions do not propagate: a line missing on one side survives from the other.
func Merge(remote, local []Line) []Line {
	merged := Normalize(remote)
	index := make(map[string]int, len(merged)+len(local))
	for i, line := range merged {
		index[line.Key] = i
	}

	for _, line := range Normalize(local) {
		i, ok := index[line.Key]
		if !ok {
			index[line.Key] = len(merged)
			merged = append(merged, line)
			continue
		}
		if line.Quantity > merged[i].Quantity {
			merged[i] = line
		}
	}
	return merged
}

// SameLines reports whether a and b hold the same lines regardless of order.
// Lines are compared by key, quantity and content.
func SameLines(a, b []Line) bool {
	na, nb := Normalize(a), Normalize(b)
	if len(na) != len(nb) {
		return false
	}
	byKey := make(map[string]Line, len(na))
	for _, line := range na {
		byKey[line.Key] = line
	}
	for _, line := range nb {
		other, ok := byKey[line.Key]
		if !ok || !other.sameContent(line) {
			return false
		}
	}
	return true
}

// QuantitiesByKey projects lines onto key → quantity
func QuantitiesByKey(lines []Line) map[string]int {
	out := make(map[string]int, len(lines))
	for _, line := range Normalize(lines) {
		out[line.Key] = line.Quantity
	}
	return out
}
